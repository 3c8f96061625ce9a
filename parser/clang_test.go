package parser

import "testing"

func TestArraySizeSpelling(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"int [n]", "n"},
		{"double [2 * dim]", "2 * dim"},
		{"int []", ""},
		{"int", ""},
		{"int [4][8]", "8"},
	}
	for _, tt := range tests {
		if got := arraySizeSpelling(tt.in); got != tt.want {
			t.Errorf("arraySizeSpelling(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
