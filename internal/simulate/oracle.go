package simulate

import (
	"fmt"

	"github.com/tiaraboard/tiara/internal/domain/model"
	"github.com/tiaraboard/tiara/internal/domain/ranking"
	"github.com/tiaraboard/tiara/internal/domain/scoring"
)

// oracle recomputes the expected standings locally from the generated raw
// scores, using the same engine the service runs. A divergence between the
// oracle and the server means scores were lost or mangled in transit.
type oracle struct {
	event       model.Event
	criteria    map[string]map[string]model.Criterion // category id -> criterion id
	numbers     map[string]int                        // contestant id -> display number
	submissions []Submission
}

func newOracle(event model.Event, subs []Submission) *oracle {
	criteria := make(map[string]map[string]model.Criterion, len(event.Categories))
	for _, cat := range event.Categories {
		m := make(map[string]model.Criterion, len(cat.Criteria))
		for _, cr := range cat.Criteria {
			m[cr.ID] = cr
		}
		criteria[cat.ID] = m
	}
	numbers := make(map[string]int, len(event.Contestants))
	for _, c := range event.Contestants {
		numbers[c.ID] = c.Number
	}
	return &oracle{event: event, criteria: criteria, numbers: numbers, submissions: subs}
}

// categoryStandings computes the expected standings for one division and
// category from the generated submissions.
func (o *oracle) categoryStandings(divisionID, categoryID string) ([]ranking.CategoryStanding, error) {
	criteria := o.criteria[categoryID]

	// judge id -> contestant id -> summed weighted total
	totals := make(map[string]map[string]float64)
	for _, sub := range o.submissions {
		if sub.DivisionID != divisionID || sub.CategoryID != categoryID {
			continue
		}
		if totals[sub.JudgeID] == nil {
			totals[sub.JudgeID] = make(map[string]float64)
		}
		for criterionID, raw := range sub.Raw {
			weighted, err := scoring.Weighted(raw, criteria[criterionID])
			if err != nil {
				return nil, fmt.Errorf("generated score out of range: %w", err)
			}
			totals[sub.JudgeID][sub.ContestantID] += weighted
		}
	}

	perJudge := make([]ranking.JudgeRanking, 0, len(totals))
	for judgeID, byContestant := range totals {
		list := make([]ranking.ContestantTotal, 0, len(byContestant))
		for contestantID, total := range byContestant {
			list = append(list, ranking.ContestantTotal{
				ContestantID: contestantID,
				Number:       o.numbers[contestantID],
				Total:        total,
			})
		}
		perJudge = append(perJudge, ranking.JudgeRanking{
			JudgeID: judgeID,
			Ranks:   ranking.RankByJudge(list),
		})
	}
	return ranking.CategoryStandings(perJudge), nil
}

// overallStandings computes the expected overall placements for a division.
func (o *oracle) overallStandings(divisionID string) ([]ranking.OverallStanding, error) {
	byCategory := make(map[string][]ranking.CategoryStanding, len(o.event.Categories))
	for _, cat := range o.event.Categories {
		standings, err := o.categoryStandings(divisionID, cat.ID)
		if err != nil {
			return nil, err
		}
		if len(standings) > 0 {
			byCategory[cat.ID] = standings
		}
	}
	return ranking.OverallStandings(byCategory), nil
}
