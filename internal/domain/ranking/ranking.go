// Package ranking implements the multi-stage rank-sum method used for
// tabulation: per-judge ranks within a category, category placements from
// summed judge ranks, and overall placements from summed category
// placements. Lower is better at every aggregated stage; members of a tied
// run share the average of the ordinal positions the run occupies.
package ranking

import (
	"sort"

	"github.com/tiaraboard/tiara/internal/domain/scoring"
)

// ContestantTotal is one judge's summed weighted score for a contestant
// across all criteria of a category. Only locked submissions are eligible;
// the caller feeds locked rows exclusively.
type ContestantTotal struct {
	ContestantID string
	Number       int
	Total        float64
}

// JudgeRank is a contestant's rank from a single judge within a category.
// Rank is fractional exactly when ties exist.
type JudgeRank struct {
	ContestantID string
	Number       int
	Total        float64
	Rank         float64
}

// JudgeRanking pairs a judge with the ranks that judge assigned.
type JudgeRanking struct {
	JudgeID string
	Ranks   []JudgeRank
}

// CategoryStanding is a contestant's aggregated result within one category.
type CategoryStanding struct {
	ContestantID string
	Number       int
	RankSum      float64
	Placement    float64
	// JudgeRanks maps judge id to the rank that judge assigned.
	JudgeRanks map[string]float64
}

// OverallStanding is a contestant's final result across all categories.
type OverallStanding struct {
	ContestantID string
	Number       int
	TotalPoints  float64
	Placement    float64
	// CategoryPlacements maps category id to the contestant's placement there.
	CategoryPlacements map[string]float64
}

// averageTiedRuns walks n already-sorted rows and assigns every member of a
// maximal run of equal values the average of the ordinal positions the run
// occupies. equal reports whether row i carries the same value as row i-1.
func averageTiedRuns(n int, equal func(i int) bool, assign func(i int, rank float64)) {
	for start := 0; start < n; {
		end := start + 1
		for end < n && equal(end) {
			end++
		}
		// Positions start+1 .. end share the run; their average is
		// ((start+1)+end)/2.
		rank := float64(start+1+end) / 2
		for i := start; i < end; i++ {
			assign(i, rank)
		}
		start = end
	}
}

// RankByJudge orders one judge's contestant totals descending and assigns
// tie-averaged ranks. Totals are fixed to the engine precision before
// comparison so the outcome is independent of summation order. The returned
// slice is ordered by rank, then contestant number, purely for stable
// presentation; the rank values themselves never depend on input order.
func RankByJudge(totals []ContestantTotal) []JudgeRank {
	ranks := make([]JudgeRank, len(totals))
	for i, t := range totals {
		ranks[i] = JudgeRank{
			ContestantID: t.ContestantID,
			Number:       t.Number,
			Total:        scoring.Round(t.Total),
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Total != ranks[j].Total {
			return ranks[i].Total > ranks[j].Total
		}
		return ranks[i].Number < ranks[j].Number
	})
	averageTiedRuns(len(ranks),
		func(i int) bool { return ranks[i].Total == ranks[i-1].Total },
		func(i int, rank float64) { ranks[i].Rank = rank },
	)
	return ranks
}

// CategoryStandings sums each contestant's per-judge ranks and re-ranks the
// contestants ascending by that sum. A contestant not ranked by a given
// judge contributes nothing from that judge; there is no default or penalty
// value.
func CategoryStandings(perJudge []JudgeRanking) []CategoryStanding {
	byContestant := make(map[string]*CategoryStanding)
	for _, jr := range perJudge {
		for _, r := range jr.Ranks {
			s, ok := byContestant[r.ContestantID]
			if !ok {
				s = &CategoryStanding{
					ContestantID: r.ContestantID,
					Number:       r.Number,
					JudgeRanks:   make(map[string]float64, len(perJudge)),
				}
				byContestant[r.ContestantID] = s
			}
			s.RankSum += r.Rank
			s.JudgeRanks[jr.JudgeID] = r.Rank
		}
	}

	standings := make([]CategoryStanding, 0, len(byContestant))
	for _, s := range byContestant {
		s.RankSum = scoring.Round(s.RankSum)
		standings = append(standings, *s)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].RankSum != standings[j].RankSum {
			return standings[i].RankSum < standings[j].RankSum
		}
		return standings[i].Number < standings[j].Number
	})
	averageTiedRuns(len(standings),
		func(i int) bool { return standings[i].RankSum == standings[i-1].RankSum },
		func(i int, rank float64) { standings[i].Placement = rank },
	)
	return standings
}

// OverallStandings sums each contestant's final category placement across
// all categories they placed in and ranks ascending by that total, with the
// same tie-averaging rule. Placement 1 denotes the winner.
func OverallStandings(byCategory map[string][]CategoryStanding) []OverallStanding {
	byContestant := make(map[string]*OverallStanding)
	for categoryID, standings := range byCategory {
		for _, s := range standings {
			o, ok := byContestant[s.ContestantID]
			if !ok {
				o = &OverallStanding{
					ContestantID:       s.ContestantID,
					Number:             s.Number,
					CategoryPlacements: make(map[string]float64, len(byCategory)),
				}
				byContestant[s.ContestantID] = o
			}
			o.TotalPoints += s.Placement
			o.CategoryPlacements[categoryID] = s.Placement
		}
	}

	standings := make([]OverallStanding, 0, len(byContestant))
	for _, o := range byContestant {
		o.TotalPoints = scoring.Round(o.TotalPoints)
		standings = append(standings, *o)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].TotalPoints != standings[j].TotalPoints {
			return standings[i].TotalPoints < standings[j].TotalPoints
		}
		return standings[i].Number < standings[j].Number
	})
	averageTiedRuns(len(standings),
		func(i int) bool { return standings[i].TotalPoints == standings[i-1].TotalPoints },
		func(i int, rank float64) { standings[i].Placement = rank },
	)
	return standings
}

// Title maps a resolved overall placement to its pageant-style title. The
// mapping is presentation only; untitled placements map to the empty string.
func Title(placement float64) string {
	switch placement {
	case 1:
		return "Winner"
	case 2:
		return "1st Runner-up"
	case 3:
		return "2nd Runner-up"
	default:
		return ""
	}
}
