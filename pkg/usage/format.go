package usage

import (
	"fmt"
	"strconv"
	"strings"
)

// HumanBytes formats byte counts with binary K/M/G suffixes for quick scanning.
func HumanBytes(n uint64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return formatScaled(float64(n)/(unit*unit*unit), "G")
	case n >= unit*unit:
		return formatScaled(float64(n)/(unit*unit), "M")
	case n >= unit:
		return formatScaled(float64(n)/unit, "K")
	}
	return strconv.FormatUint(n, 10) + "B"
}

// Percent formats a 0-100 value with one decimal.
func Percent(v float64) string {
	return formatScaled(v, "%")
}

// GroupedInt formats integers with comma separators.
func GroupedInt(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupDigits(s[1:])
	}
	return groupDigits(s)
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func formatScaled(value float64, suffix string) string {
	s := fmt.Sprintf("%.1f", value)
	s = strings.TrimSuffix(s, ".0")
	return s + suffix
}
