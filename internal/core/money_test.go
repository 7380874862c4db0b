package core

import (
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"50.000", 50000, true},
		{"1.250.000", 1250000, true},
		{" 1200 ", 1200, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"12,5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"...", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	got := FormatAmount(1000, "IDR")
	if !strings.Contains(got, "1.000") {
		t.Fatalf("expected thousands separator in %q", got)
	}
	if !strings.HasPrefix(FormatSignedAmount(-5, "EUR"), "-") {
		t.Fatalf("expected negative sign")
	}
	if !strings.HasPrefix(FormatSignedAmount(5, "EUR"), "+") {
		t.Fatalf("expected positive sign")
	}
}
