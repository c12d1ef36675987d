package format

import (
	"strings"
	"testing"
	"time"
)

func TestFormatPercent_AlwaysSigned(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{12.345, "+12.35%"},
		{-3.2, "-3.20%"},
		{0, "+0.00%"},
		{0.004, "+0.00%"},
	}
	for _, c := range cases {
		got := FormatPercent(c.in, 2)
		if got != c.want {
			t.Errorf("FormatPercent(%v) = %q; want %q", c.in, got, c.want)
		}
		if got[0] != '+' && got[0] != '-' {
			t.Errorf("FormatPercent(%v) = %q; missing sign", c.in, got)
		}
	}
}

func TestFormatNumber_Compact(t *testing.T) {
	got := FormatNumber(1_500_000, true, 2)
	if !strings.HasSuffix(got, "M") {
		t.Errorf("FormatNumber(1500000) = %q; want M suffix", got)
	}
	if got != "1.5M" {
		t.Errorf("FormatNumber(1500000) = %q; want %q", got, "1.5M")
	}

	got = FormatNumber(2_400_000_000, true, 2)
	if got != "2.4B" {
		t.Errorf("FormatNumber(2.4e9) = %q; want %q", got, "2.4B")
	}

	got = FormatNumber(999, true, 2)
	if strings.ContainsAny(got, "KMBT") {
		t.Errorf("FormatNumber(999) = %q; should not be compacted", got)
	}
}

func TestFormatCurrency_TinyUsesExponential(t *testing.T) {
	got := FormatCurrency(0.0000003, false)
	if !strings.ContainsAny(got, "eE") {
		t.Errorf("FormatCurrency(0.0000003) = %q; want exponential notation", got)
	}
	if !strings.HasPrefix(got, "$") {
		t.Errorf("FormatCurrency(0.0000003) = %q; want $ prefix", got)
	}
}

func TestFormatCurrency_Compact(t *testing.T) {
	got := FormatCurrency(1_500_000, true)
	if !strings.HasSuffix(got, "M") {
		t.Errorf("FormatCurrency(1500000, compact) = %q; want M suffix", got)
	}
}

func TestFormatCurrency_Regular(t *testing.T) {
	got := FormatCurrency(1234.5, false)
	if got != "$1,234.50" {
		t.Errorf("FormatCurrency(1234.5) = %q; want %q", got, "$1,234.50")
	}

	got = FormatCurrency(0.1234, false)
	if got != "$0.1234" {
		t.Errorf("FormatCurrency(0.1234) = %q; want %q", got, "$0.1234")
	}
}

func TestTruncateAddress(t *testing.T) {
	addr := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	got := TruncateAddress(addr, 4)
	want := "7xKX...gAsU"
	if got != want {
		t.Errorf("TruncateAddress = %q; want %q", got, want)
	}

	if got := TruncateAddress("short", 4); got != "short" {
		t.Errorf("TruncateAddress(short) = %q; want unchanged", got)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, c := range cases {
		if got := RelativeTime(c.t, now); got != c.want {
			t.Errorf("RelativeTime(%v) = %q; want %q", c.t, got, c.want)
		}
	}
}
