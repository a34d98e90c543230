package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseContribution(t *testing.T) {
	for _, in := range []string{"", "0", "0.00", "0,0"} {
		got, err := ParseContribution(in)
		if err != nil || !got.IsZero() {
			t.Fatalf("%q expected zero, got %s (err=%v)", in, got, err)
		}
	}
	got, err := ParseContribution("150,5")
	if err != nil || !got.Equal(decimal.RequireFromString("150.5")) {
		t.Fatalf("expected 150.5, got %s (err=%v)", got, err)
	}
	if _, err := ParseContribution("-3"); err != ErrInvalidContribution {
		t.Fatalf("expected ErrInvalidContribution, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":      "$0.00",
		"1234.5": "$1234.50",
		"0.005":  "$0.01",
		"-200":   "-$200.00",
		"99.999": "$100.00",
		"575":    "$575.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}
