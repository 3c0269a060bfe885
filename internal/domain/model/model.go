// Package model contains domain models passed between layers.
package model

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator for boundary checks.
var validate = validator.New() //nolint:gochecknoglobals // single validator instance is the library's intended usage

// Division is a disjoint contestant pool scored independently.
type Division struct {
	ID    string `json:"id" koanf:"id" validate:"required"`
	Label string `json:"label" koanf:"label" validate:"required"`
}

// Judge belongs to exactly one division. AccessCode is exchanged for a
// token at login; it never leaves the server after seeding.
type Judge struct {
	ID         string `json:"id" koanf:"id" validate:"required"`
	Name       string `json:"name" koanf:"name" validate:"required"`
	DivisionID string `json:"division_id" koanf:"division_id" validate:"required"`
	AccessCode string `json:"-" koanf:"access_code" validate:"required"`
}

// Contestant belongs to exactly one division and carries a display number
// unique within that division.
type Contestant struct {
	ID         string `json:"id" koanf:"id" validate:"required"`
	Number     int    `json:"number" koanf:"number" validate:"gt=0"`
	Name       string `json:"name" koanf:"name" validate:"required"`
	DivisionID string `json:"division_id" koanf:"division_id" validate:"required"`
}

// Category is an ordered, named group of criteria. Weight is carried from
// the event definition but the shipped ranking uses unweighted rank-sum of
// placements across categories.
type Category struct {
	ID       string      `json:"id" koanf:"id" validate:"required"`
	Label    string      `json:"label" koanf:"label" validate:"required"`
	Order    int         `json:"order" koanf:"order" validate:"gte=0"`
	Weight   float64     `json:"weight" koanf:"weight" validate:"gte=0"`
	Criteria []Criterion `json:"criteria" koanf:"criteria" validate:"required,min=1,dive"`
}

// Criterion is an individually scored sub-component of a category.
// Percentage is its share of the category in (0,1]; the maximum legal raw
// score equals round(Percentage*100).
type Criterion struct {
	ID         string  `json:"id" koanf:"id" validate:"required"`
	CategoryID string  `json:"category_id" koanf:"category_id"`
	Label      string  `json:"label" koanf:"label" validate:"required"`
	Percentage float64 `json:"percentage" koanf:"percentage" validate:"gt=0,lte=1"`
}

// MaxRaw returns the maximum legal raw score for the criterion.
func (c Criterion) MaxRaw() float64 {
	return math.Round(c.Percentage * 100)
}

// Score is one judge's raw and weighted value for a single criterion of a
// contestant. Rows are upserted on the full natural key until the matching
// lock exists.
type Score struct {
	JudgeID       string  `json:"judge_id" validate:"required"`
	ContestantID  string  `json:"contestant_id" validate:"required"`
	CategoryID    string  `json:"category_id" validate:"required"`
	CriterionID   string  `json:"criterion_id" validate:"required"`
	RawScore      float64 `json:"raw_score" validate:"gte=0"`
	WeightedScore float64 `json:"weighted_score" validate:"gte=0"`
}

// Lock marks one judge's scores for a contestant in a category as
// immutable. Its absence is the only mutable state.
type Lock struct {
	JudgeID      string `json:"judge_id" validate:"required"`
	CategoryID   string `json:"category_id" validate:"required"`
	ContestantID string `json:"contestant_id" validate:"required"`
}

// Event is the full competition definition loaded at startup.
type Event struct {
	Name        string       `json:"name" koanf:"name" validate:"required"`
	Divisions   []Division   `json:"divisions" koanf:"divisions" validate:"required,min=1,dive"`
	Categories  []Category   `json:"categories" koanf:"categories" validate:"required,min=1,dive"`
	Judges      []Judge      `json:"judges" koanf:"judges" validate:"required,min=1,dive"`
	Contestants []Contestant `json:"contestants" koanf:"contestants" validate:"required,min=1,dive"`
}

// Validate checks the event definition against its struct tags and the
// cross-entity rules a flat tag cannot express: referenced divisions must
// exist and contestant numbers must be unique within a division.
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	divisions := make(map[string]bool, len(e.Divisions))
	for _, d := range e.Divisions {
		divisions[d.ID] = true
	}
	for _, j := range e.Judges {
		if !divisions[j.DivisionID] {
			return &ReferenceError{Entity: "judge", ID: j.ID, Ref: j.DivisionID}
		}
	}
	numbers := make(map[string]map[int]bool, len(e.Divisions))
	for _, c := range e.Contestants {
		if !divisions[c.DivisionID] {
			return &ReferenceError{Entity: "contestant", ID: c.ID, Ref: c.DivisionID}
		}
		if numbers[c.DivisionID] == nil {
			numbers[c.DivisionID] = make(map[int]bool)
		}
		if numbers[c.DivisionID][c.Number] {
			return &DuplicateNumberError{DivisionID: c.DivisionID, Number: c.Number}
		}
		numbers[c.DivisionID][c.Number] = true
	}
	return nil
}

// RefreshEvent asks the recompute pipeline to rebuild standings for one
// division, optionally narrowed to a category.
type RefreshEvent struct {
	DivisionID string
	CategoryID string // empty means the whole division
}

// Key returns the coalescing key for the refresh event.
func (e RefreshEvent) Key() string {
	return e.DivisionID + "/" + e.CategoryID
}
