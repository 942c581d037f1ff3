package submission

import (
	"math"
	"strconv"
	"strings"
)

// ComputeBMI computes body mass index from imperial units using the
// standard formula (weight / height²) × 703, rounded to two decimals.
// Non-positive inputs yield zero.
func ComputeBMI(weightLbs, heightInches float64) float64 {
	if weightLbs <= 0 || heightInches <= 0 {
		return 0
	}
	bmi := weightLbs / (heightInches * heightInches) * 703
	return math.Round(bmi*100) / 100
}

// toFloat coerces a stored answer into a float64. Responses that round-trip
// through JSON arrive as float64, but fresh in-memory writes may be ints or
// numeric strings.
func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
