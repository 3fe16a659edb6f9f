package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f in debug style: integral values keep a ".0",
// magnitudes below 1e-4 or at least 1e16 use exponent form ("1e-5",
// "1.5e16"), and non-finite values print as NaN, inf and -inf.
func FormatFloat(f float32) string {
	switch {
	case f != f:
		return "NaN"
	case math.IsInf(float64(f), 1):
		return "inf"
	case math.IsInf(float64(f), -1):
		return "-inf"
	}

	abs := float32(math.Abs(float64(f)))
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s := strconv.FormatFloat(float64(f), 'e', -1, 32)
		mant, exp, _ := strings.Cut(s, "e")
		sign := ""
		if exp[0] == '-' {
			sign = "-"
		}
		return mant + "e" + sign + strings.TrimLeft(exp[1:], "0")
	}

	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// FormatVector renders v as "[1.0, 2.5, -3.0]".
func FormatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(FormatFloat(x))
	}
	b.WriteByte(']')
	return b.String()
}

// FormatSimilarity renders a similarity with four decimals.
func FormatSimilarity(f float32) string {
	return fmt.Sprintf("%.4f", f)
}
