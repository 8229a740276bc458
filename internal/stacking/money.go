package stacking

import "math"

// roundCents computes valueCents * rate and rounds to the nearest cent
// using round-half-to-even (banker's rounding), so repeated stacking
// calculations never drift from systematically rounding up (§4.9 Step 5).
func roundCents(valueCents int64, rate float64) int64 {
	if rate == 0 {
		return 0
	}
	return bankersRound(float64(valueCents) * rate)
}

func bankersRound(x float64) int64 {
	floor := math.Floor(x)
	diff := x - floor
	switch {
	case diff < 0.5:
		return int64(floor)
	case diff > 0.5:
		return int64(floor) + 1
	default:
		if int64(floor)%2 == 0 {
			return int64(floor)
		}
		return int64(floor) + 1
	}
}
