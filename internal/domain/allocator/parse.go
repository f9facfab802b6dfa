package allocator

import (
	"math"
	"strconv"
	"strings"
)

// ParseQuantity coerces a raw field value into a non-negative unit count.
// Empty, non-numeric, non-finite and negative input all become zero;
// fractional input is truncated.
func ParseQuantity(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(v))
}

// ParsePercent coerces a raw field value into a percentage in [0, 100].
func ParsePercent(raw string) int {
	return min(100, ParseQuantity(raw))
}
