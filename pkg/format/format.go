package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Pure display helpers shared by the API layer and the client SDK. The
// rules mirror the rendering used on the token tables: tiny prices fall
// back to exponential notation, large magnitudes get K/M/B suffixes, and
// percentage changes always carry an explicit sign.

// FormatPercent renders a price change with a leading + or -.
// Zero and positive values get "+", negatives get "-".
func FormatPercent(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 2
	}
	sign := "+"
	if value < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%.*f%%", sign, decimals, math.Abs(value))
}

// FormatCurrency renders a USD amount. Values below 1e-6 use exponential
// notation, sub-dollar values keep extra precision, and compact mode
// abbreviates millions and above.
func FormatCurrency(value float64, compact bool) string {
	if compact && math.Abs(value) >= 1_000_000 {
		return "$" + compactNotation(value, 2)
	}
	if value > 0 && value < 0.000001 {
		return "$" + strconv.FormatFloat(value, 'e', 4, 64)
	}
	if value != 0 && math.Abs(value) < 1 {
		return "$" + trimZeros(strconv.FormatFloat(value, 'f', 6, 64), 4)
	}
	return "$" + withThousands(value, 2)
}

// FormatNumber renders a plain number, compacting magnitudes of one
// thousand and above with K/M/B/T suffixes.
func FormatNumber(value float64, compact bool, decimals int) string {
	if decimals < 0 {
		decimals = 2
	}
	if compact && math.Abs(value) >= 1000 {
		return compactNotation(value, decimals)
	}
	return withThousands(value, decimals)
}

// compactNotation abbreviates a value with a magnitude suffix.
func compactNotation(value float64, decimals int) string {
	abs := math.Abs(value)
	var scaled float64
	var suffix string
	switch {
	case abs >= 1e12:
		scaled, suffix = value/1e12, "T"
	case abs >= 1e9:
		scaled, suffix = value/1e9, "B"
	case abs >= 1e6:
		scaled, suffix = value/1e6, "M"
	case abs >= 1e3:
		scaled, suffix = value/1e3, "K"
	default:
		return strconv.FormatFloat(value, 'f', decimals, 64)
	}
	return trimZeros(strconv.FormatFloat(scaled, 'f', decimals, 64), 0) + suffix
}

// withThousands formats with fixed decimals and comma grouping.
func withThousands(value float64, decimals int) string {
	s := strconv.FormatFloat(value, 'f', decimals, 64)
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// trimZeros drops trailing fractional zeros but keeps at least min digits.
func trimZeros(s string, min int) string {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s
	}
	end := len(s)
	for end > i+1+min && s[end-1] == '0' {
		end--
	}
	if s[end-1] == '.' {
		end--
	}
	return s[:end]
}

// TruncateAddress shortens a Solana address for display: "abcd...wxyz".
func TruncateAddress(address string, chars int) string {
	if chars <= 0 {
		chars = 4
	}
	if len(address) <= chars*2+2 {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}

// RelativeTime renders a past timestamp as "just now", "5m ago", etc.
func RelativeTime(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("Jan 2")
}
