// Package insight derives read-only analytics from ranking outputs:
// placement consistency, strongest and weakest categories, gap to the
// leader, and head-to-head comparisons. Everything here is recomputed from
// ranking results and keeps no state of its own.
package insight

import (
	"math"

	"github.com/tiaraboard/tiara/internal/domain/ranking"
)

// Report summarizes one contestant's performance across a division.
type Report struct {
	ContestantID string  `json:"contestant_id"`
	Number       int     `json:"number"`
	TotalPoints  float64 `json:"total_points"`
	Placement    float64 `json:"placement"`
	Title        string  `json:"title,omitempty"`
	// Variance and StdDev are population statistics over per-category
	// placements; lower means more consistent placement.
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	// GapToLeader is TotalPoints minus the leader's; zero for the leader.
	GapToLeader       float64 `json:"gap_to_leader"`
	StrongestCategory string  `json:"strongest_category,omitempty"`
	WeakestCategory   string  `json:"weakest_category,omitempty"`
}

// HeadToHead compares two contestants category by category and overall.
type HeadToHead struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	AWins      int     `json:"a_wins"`
	BWins      int     `json:"b_wins"`
	Ties       int     `json:"ties"`
	APlacement float64 `json:"a_placement"`
	BPlacement float64 `json:"b_placement"`
	// OverallWinner is the contestant id with the lower final placement,
	// empty when the placements are equal.
	OverallWinner string `json:"overall_winner,omitempty"`
	// Categories maps category id to "a", "b", or "tie".
	Categories map[string]string `json:"categories"`
}

// Build derives the insight report for one contestant from the overall
// standings. ok is false when the contestant does not appear in them.
func Build(contestantID string, overall []ranking.OverallStanding) (Report, bool) {
	var subject *ranking.OverallStanding
	leaderPoints := math.Inf(1)
	for i := range overall {
		if overall[i].ContestantID == contestantID {
			subject = &overall[i]
		}
		if overall[i].TotalPoints < leaderPoints {
			leaderPoints = overall[i].TotalPoints
		}
	}
	if subject == nil {
		return Report{}, false
	}

	r := Report{
		ContestantID: subject.ContestantID,
		Number:       subject.Number,
		TotalPoints:  subject.TotalPoints,
		Placement:    subject.Placement,
		Title:        ranking.Title(subject.Placement),
		GapToLeader:  subject.TotalPoints - leaderPoints,
	}
	r.Variance, r.StdDev = consistency(subject.CategoryPlacements)
	r.StrongestCategory, r.WeakestCategory = extremes(subject.CategoryPlacements)
	return r, true
}

// consistency returns the population variance and standard deviation of the
// per-category placements.
func consistency(placements map[string]float64) (variance, stddev float64) {
	n := float64(len(placements))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range placements {
		sum += p
	}
	mean := sum / n
	for _, p := range placements {
		d := p - mean
		variance += d * d
	}
	variance /= n
	return variance, math.Sqrt(variance)
}

// extremes returns the categories with the numerically lowest (strongest)
// and highest (weakest) placement. Equal placements resolve to the
// lexically smaller category id so the answer is deterministic.
func extremes(placements map[string]float64) (strongest, weakest string) {
	best, worst := math.Inf(1), math.Inf(-1)
	for id, p := range placements {
		if p < best || (p == best && id < strongest) {
			best, strongest = p, id
		}
		if p > worst || (p == worst && id < weakest) {
			worst, weakest = p, id
		}
	}
	return strongest, weakest
}

// Compare builds the head-to-head summary for contestants a and b. In each
// category both placed in, the lower final category placement wins; equal
// placements tie. Categories only one of them placed in are skipped.
func Compare(a, b string, byCategory map[string][]ranking.CategoryStanding, overall []ranking.OverallStanding) HeadToHead {
	h := HeadToHead{A: a, B: b, Categories: make(map[string]string, len(byCategory))}

	for categoryID, standings := range byCategory {
		var pa, pb float64
		var haveA, haveB bool
		for _, s := range standings {
			switch s.ContestantID {
			case a:
				pa, haveA = s.Placement, true
			case b:
				pb, haveB = s.Placement, true
			}
		}
		if !haveA || !haveB {
			continue
		}
		switch {
		case pa < pb:
			h.AWins++
			h.Categories[categoryID] = "a"
		case pb < pa:
			h.BWins++
			h.Categories[categoryID] = "b"
		default:
			h.Ties++
			h.Categories[categoryID] = "tie"
		}
	}

	for _, o := range overall {
		switch o.ContestantID {
		case a:
			h.APlacement = o.Placement
		case b:
			h.BPlacement = o.Placement
		}
	}
	switch {
	case h.APlacement != 0 && (h.BPlacement == 0 || h.APlacement < h.BPlacement):
		h.OverallWinner = a
	case h.BPlacement != 0 && (h.APlacement == 0 || h.BPlacement < h.APlacement):
		h.OverallWinner = b
	}
	return h
}
