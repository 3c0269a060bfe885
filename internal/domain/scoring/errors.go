package scoring

import (
	"errors"
	"fmt"
)

// ErrOutOfRange marks raw scores outside a criterion's legal range.
var ErrOutOfRange = errors.New("raw score out of range")

// OutOfRangeError carries the offending value and the criterion's bound.
type OutOfRangeError struct {
	CriterionID string
	Raw         float64
	Max         float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("raw score %g for criterion %s outside [0, %g]", e.Raw, e.CriterionID, e.Max)
}

// Unwrap lets callers match with errors.Is(err, ErrOutOfRange).
func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }
