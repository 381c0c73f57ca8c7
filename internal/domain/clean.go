package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// censorMarkers are the detection-limit prefixes used in laboratory results.
var censorMarkers = strings.NewReplacer("<", "", ">", "")

// CleanCensored strips detection-limit markers from a pollutant reading and
// parses the remainder. ok is false when nothing numeric is left; the caller
// decides whether that becomes a missing value.
func CleanCensored(raw string) (value float64, ok bool) {
	s := strings.TrimSpace(censorMarkers.Replace(raw))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// NormalizeAmount removes thousands separators and surrounding whitespace from
// a locale-formatted amount, e.g. " 1,234.5 " -> "1234.5".
func NormalizeAmount(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
}

// CleanAmount normalizes and parses an amount. On failure it returns the
// normalized text with ok=false so the caller can keep it verbatim.
func CleanAmount(raw string) (value float64, text string, ok bool) {
	text = NormalizeAmount(raw)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, text, false
	}
	return v, text, true
}

var errNotIntegral = errors.New("not an integral value")

// ParseKey converts an identity field to an integer. Integral decimals such as
// "2013.0" are accepted because spreadsheet exports render integers that way.
func ParseKey(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return KeyFromFloat(f)
}

// KeyFromFloat accepts a float only when it holds an exact integer.
func KeyFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}
