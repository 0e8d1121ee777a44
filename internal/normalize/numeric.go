package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	pointsStripRegex   = regexp.MustCompile(`[^\d-]`)
	decimalStripRegex  = regexp.MustCompile(`[^\d.\-]`)
	leadingIntRegex    = regexp.MustCompile(`^-?\d+`)
	leadingNumberRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
)

// Numeric returns the trimmed value when it is a number, otherwise "". The
// value is not reformatted. Bill numbers and bill amounts use it.
func Numeric(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return ""
	}
	return v
}

// Points returns an integer as text. Empty or non-numeric input yields "0";
// fractional values are truncated toward zero.
func Points(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "0"
	}

	if strings.Contains(v, ".") {
		decimal := strings.TrimLeft(decimalStripRegex.ReplaceAllString(v, ""), ".")
		if m := leadingNumberRegex.FindString(decimal); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil && !math.IsInf(f, 0) {
				t := math.Trunc(f)
				if t == 0 {
					return "0"
				}
				return strconv.FormatFloat(t, 'f', 0, 64)
			}
		}
	}

	m := leadingIntRegex.FindString(pointsStripRegex.ReplaceAllString(v, ""))
	if m == "" {
		return "0"
	}
	if n, err := strconv.ParseInt(m, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return trimIntegerText(m)
}

// trimIntegerText drops leading zeros from integers too large for int64.
func trimIntegerText(s string) string {
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimLeft(strings.TrimPrefix(s, "-"), "0")
	if digits == "" {
		return "0"
	}
	if neg {
		return "-" + digits
	}
	return digits
}
