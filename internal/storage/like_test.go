package storage

import "testing"

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Kopi", "%kopi%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\tmp`, `%c:\\tmp%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ContainsPattern(tt.in); got != tt.want {
				t.Fatalf("ContainsPattern(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
