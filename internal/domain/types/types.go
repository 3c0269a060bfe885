// Package types contains common read shapes shared across the application.
package types

// CategoryRow is one line of a category standings table, flat enough for
// tabular export.
type CategoryRow struct {
	DivisionID   string             `json:"division_id"`
	CategoryID   string             `json:"category_id"`
	ContestantID string             `json:"contestant_id"`
	Number       int                `json:"number"`
	Name         string             `json:"name"`
	JudgeRanks   map[string]float64 `json:"judge_ranks"`
	RankSum      float64            `json:"rank_sum"`
	Placement    float64            `json:"placement"`
}

// OverallRow is one line of an overall standings table.
type OverallRow struct {
	DivisionID         string             `json:"division_id"`
	ContestantID       string             `json:"contestant_id"`
	Number             int                `json:"number"`
	Name               string             `json:"name"`
	CategoryPlacements map[string]float64 `json:"category_placements"`
	TotalPoints        float64            `json:"total_points"`
	Placement          float64            `json:"placement"`
	Title              string             `json:"title,omitempty"`
}

// SheetEntry is one saved criterion score on a judge's sheet.
type SheetEntry struct {
	ContestantID  string  `json:"contestant_id"`
	CriterionID   string  `json:"criterion_id"`
	RawScore      float64 `json:"raw_score"`
	WeightedScore float64 `json:"weighted_score"`
	Locked        bool    `json:"locked"`
}
