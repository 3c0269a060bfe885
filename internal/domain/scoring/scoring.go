// Package scoring turns raw per-criterion inputs into bounded, rounded
// weighted contributions.
//
// A criterion's percentage is its maximum attainable points, not a
// multiplier: a legal raw score already lives on the criterion's own scale,
// so the weighted value equals the raw value rounded to a fixed precision.
package scoring

import (
	"math"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

// precisionFactor fixes weighted values to 3 decimal digits.
const precisionFactor = 1000

// Weighted validates raw against the criterion's legal range and returns
// the weighted contribution. The range check also runs at the input
// boundary; repeating it here keeps the calculator total over any caller.
func Weighted(raw float64, c model.Criterion) (float64, error) {
	maxRaw := c.MaxRaw()
	if raw < 0 || raw > maxRaw {
		return 0, &OutOfRangeError{
			CriterionID: c.ID,
			Raw:         raw,
			Max:         maxRaw,
		}
	}
	return Round(raw), nil
}

// Round fixes a score value to the engine's decimal precision.
func Round(v float64) float64 {
	return math.Round(v*precisionFactor) / precisionFactor
}
