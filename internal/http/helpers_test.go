package http

import (
	"testing"

	"outlay/internal/core"
)

func TestSanitizeInput(t *testing.T) {
	cases := map[string]string{
		"  Café  ":       "Café",
		"a\x00b\x07c":    "abc",
		"line\tbreak\n ": "line\tbreak",
	}
	for in, want := range cases {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBarWidth(t *testing.T) {
	max := core.Money{Cents: 3550}
	cases := []struct {
		part int64
		want int
	}{
		{3550, 100},
		{275, 8},
		{1, 2},
		{0, 0},
	}
	for _, c := range cases {
		if got := barWidth(core.Money{Cents: c.part}, max); got != c.want {
			t.Errorf("barWidth(%d) = %d, want %d", c.part, got, c.want)
		}
	}
	if barWidth(core.Money{Cents: 5}, core.Money{}) != 0 {
		t.Error("zero max should give zero width")
	}
}
