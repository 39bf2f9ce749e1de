package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/streamforge/lgrep/compile"
	"github.com/streamforge/lgrep/pattern"
	"github.com/streamforge/lgrep/search"
	"github.com/streamforge/lgrep/vm"
)

type serverFlags struct {
	Addr string
}

var svflags = serverFlags{Addr: ":8080"}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the compiled pattern program over HTTP, exposing Prometheus metrics on /metrics.",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&svflags.Addr, "addr", svflags.Addr, "address to listen on")
}

// serverMetrics mirrors vitess's convention of a small set of Prometheus
// counters wired into every long-lived server process
// (stats/prometheusbackend), rather than the ad hoc stderr status lines the
// original command-line tool printed once per run.
type serverMetrics struct {
	bytesScanned prometheus.Counter
	hits         prometheus.Counter
	requests     prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{
		bytesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lgrep_bytes_scanned_total",
			Help: "Total bytes searched across all /search requests.",
		}),
		hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lgrep_hits_total",
			Help: "Total pattern hits reported across all /search requests.",
		}),
		requests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lgrep_search_requests_total",
			Help: "Total /search requests served.",
		}),
	}
}

// searchServer holds the state built once at startup and shared read-only
// across concurrent requests. A fresh Strategy is constructed per request
// in handleSearch: both *vm.VM and *accel.LiteralAutomaton carry per-search
// positional state (active threads, carried bytes) that is not safe to
// reuse across concurrent searches.
type searchServer struct {
	pats    []pattern.Pattern
	prog    *compile.Program
	metrics *serverMetrics
}

func runServer(cmd *cobra.Command, args []string) error {
	pats, err := loadPatterns(fs, flags.PatternFile)
	if err != nil {
		return err
	}
	g, err := buildGraph(pats, flags.Determinize)
	if err != nil {
		return err
	}
	prog, err := buildProgram(g)
	if err != nil {
		return err
	}
	slog.Info("server: compiled program", "patterns", len(pats), "states", g.NumStates())

	srv := &searchServer{pats: pats, prog: prog, metrics: newServerMetrics()}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/search", srv.handleSearch).Methods(http.MethodPost)

	slog.Info("server: listening", "addr", svflags.Addr)
	return http.ListenAndServe(svflags.Addr, r)
}

func (s *searchServer) handleSearch(w http.ResponseWriter, req *http.Request) {
	s.metrics.requests.Inc()

	strat, err := buildStrategy(s.pats, s.prog)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var ctrl *search.Controller
	if strat != nil {
		ctrl = search.NewController(strat, search.DefaultBlockSize)
	} else {
		ctrl = search.NewVMController(s.prog, search.DefaultBlockSize)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	emit := func(h vm.Hit) {
		s.metrics.hits.Inc()
		fmt.Fprintf(w, "%d\t%d\t%d\n", h.Offset, h.Length, h.Label)
	}

	stats, err := ctrl.Search(req.Context(), req.Body, emit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.bytesScanned.Add(float64(stats.BytesSearched))
}
