package simd

import "testing"

func TestMemchrInTable(t *testing.T) {
	// Create a custom table (vowels only)
	var vowels [256]bool
	for _, c := range []byte("aeiouAEIOU") {
		vowels[c] = true
	}

	tests := []struct {
		name     string
		haystack string
		want     int
	}{
		{"empty", "", -1},
		{"first is vowel", "apple", 0},
		{"vowel in middle", "xyz_a_xyz", 4},
		{"no vowels", "rhythm", -1},
		{"upper vowel", "XYZ_A", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MemchrInTable([]byte(tt.haystack), &vowels)
			if got != tt.want {
				t.Errorf("MemchrInTable(%q) = %d, want %d", tt.haystack, got, tt.want)
			}
		})
	}
}

func TestMemchrInTable_NilTable(t *testing.T) {
	if got := MemchrInTable([]byte("abc"), nil); got != -1 {
		t.Errorf("MemchrInTable with nil table = %d, want -1", got)
	}
}
