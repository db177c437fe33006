package helper

import (
	"math"
	"testing"
)

func TestNormTF(t *testing.T) {
	cases := map[string]string{
		"candle15m": "15m",
		"60m":       "1h",
		"4H":        "4h",
		" 5m ":      "5m",
		"1m":        "1m",
	}
	for in, want := range cases {
		if got := NormTF(in); got != want {
			t.Fatalf("NormTF(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(12345.6789); got != "12345.6789" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPrice(0.00012345); got != "0.000123" {
		t.Fatalf("got %q", got)
	}
}

func TestRoundToTick(t *testing.T) {
	if got := RoundDownToTick(100.07, 0.05); math.Abs(got-100.05) > 1e-9 {
		t.Fatalf("down: %v", got)
	}
	if got := RoundUpToTick(100.07, 0.05); math.Abs(got-100.1) > 1e-9 {
		t.Fatalf("up: %v", got)
	}
}
