package utils

import "math"

// MaxChargeAmount is the per-transaction ceiling accepted by this API.
const MaxChargeAmount = 99999.99

func Round(value float64) float64 {
	return math.Round(value*100) / 100
}

// ValidAmount reports whether value is a chargeable amount: positive,
// finite, and under the per-transaction ceiling.
func ValidAmount(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	return value > 0 && value <= MaxChargeAmount
}
