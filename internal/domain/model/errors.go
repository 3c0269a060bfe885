package model

import "fmt"

// ReferenceError reports an entity pointing at a division that is not part
// of the event definition.
type ReferenceError struct {
	Entity string
	ID     string
	Ref    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s references unknown division %s", e.Entity, e.ID, e.Ref)
}

// DuplicateNumberError reports two contestants sharing a display number
// within the same division.
type DuplicateNumberError struct {
	DivisionID string
	Number     int
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("duplicate contestant number %d in division %s", e.Number, e.DivisionID)
}
