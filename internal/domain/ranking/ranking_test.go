package ranking_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/domain/ranking"
)

func totals(vals ...float64) []ranking.ContestantTotal {
	out := make([]ranking.ContestantTotal, len(vals))
	for i, v := range vals {
		out[i] = ranking.ContestantTotal{
			ContestantID: string(rune('a' + i)),
			Number:       i + 1,
			Total:        v,
		}
	}
	return out
}

func rankOf(ranks []ranking.JudgeRank, contestantID string) float64 {
	for _, r := range ranks {
		if r.ContestantID == contestantID {
			return r.Rank
		}
	}
	return 0
}

func TestRankByJudge(t *testing.T) {
	Convey("Given one judge's totals for three contestants", t, func() {
		Convey("When two contestants tie at the top", func() {
			ranks := ranking.RankByJudge(totals(90, 90, 70))

			Convey("Then the tied pair shares the average of positions 1 and 2", func() {
				So(rankOf(ranks, "a"), ShouldEqual, 1.5)
				So(rankOf(ranks, "b"), ShouldEqual, 1.5)
				So(rankOf(ranks, "c"), ShouldEqual, 3)
			})
		})

		Convey("When every contestant ties", func() {
			ranks := ranking.RankByJudge(totals(80, 80, 80))

			Convey("Then everyone gets the middle rank", func() {
				So(rankOf(ranks, "a"), ShouldEqual, 2)
				So(rankOf(ranks, "b"), ShouldEqual, 2)
				So(rankOf(ranks, "c"), ShouldEqual, 2)
			})
		})

		Convey("When no contestants tie", func() {
			ranks := ranking.RankByJudge(totals(70, 95, 82))

			Convey("Then higher totals earn lower ranks", func() {
				So(rankOf(ranks, "b"), ShouldEqual, 1)
				So(rankOf(ranks, "c"), ShouldEqual, 2)
				So(rankOf(ranks, "a"), ShouldEqual, 3)
			})
		})

		Convey("When totals differ only by float summation noise", func() {
			noisy := totals(0.1+0.2, 0.3, 0.15)
			ranks := ranking.RankByJudge(noisy)

			Convey("Then rounding makes them an exact tie", func() {
				So(rankOf(ranks, "a"), ShouldEqual, 1.5)
				So(rankOf(ranks, "b"), ShouldEqual, 1.5)
				So(rankOf(ranks, "c"), ShouldEqual, 3)
			})
		})

		Convey("When the same totals arrive in a different order", func() {
			forward := ranking.RankByJudge(totals(88, 92, 75, 92))

			shuffled := []ranking.ContestantTotal{
				{ContestantID: "d", Number: 4, Total: 92},
				{ContestantID: "b", Number: 2, Total: 92},
				{ContestantID: "a", Number: 1, Total: 88},
				{ContestantID: "c", Number: 3, Total: 75},
			}
			backward := ranking.RankByJudge(shuffled)

			Convey("Then each contestant's rank is identical", func() {
				for _, id := range []string{"a", "b", "c", "d"} {
					So(rankOf(backward, id), ShouldEqual, rankOf(forward, id))
				}
			})
		})

		Convey("When any field of ties exists", func() {
			ranks := ranking.RankByJudge(totals(50, 50, 50, 40, 40, 30))

			Convey("Then the rank sum still equals n(n+1)/2", func() {
				var sum float64
				for _, r := range ranks {
					sum += r.Rank
				}
				So(sum, ShouldEqual, 21) // 6*7/2
			})
		})
	})
}

func placementOf(standings []ranking.CategoryStanding, contestantID string) float64 {
	for _, s := range standings {
		if s.ContestantID == contestantID {
			return s.Placement
		}
	}
	return 0
}

func TestCategoryStandings(t *testing.T) {
	Convey("Given three judges' ranks within a category", t, func() {
		perJudge := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(90, 80, 70))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(85, 95, 75))},
			{JudgeID: "j3", Ranks: ranking.RankByJudge(totals(88, 82, 91))},
		}

		Convey("When standings are computed", func() {
			standings := ranking.CategoryStandings(perJudge)

			Convey("Then rank sums drive the placements", func() {
				// a: 1+2+2=5, b: 2+1+3=6, c: 3+3+1=7
				So(placementOf(standings, "a"), ShouldEqual, 1)
				So(placementOf(standings, "b"), ShouldEqual, 2)
				So(placementOf(standings, "c"), ShouldEqual, 3)
			})

			Convey("And each row keeps its per-judge ranks", func() {
				So(standings[0].JudgeRanks, ShouldContainKey, "j1")
				So(standings[0].JudgeRanks, ShouldContainKey, "j2")
				So(standings[0].JudgeRanks, ShouldContainKey, "j3")
			})
		})
	})

	Convey("Given two judges who exactly disagree", t, func() {
		perJudge := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(90, 70))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(70, 90))},
		}

		Convey("Then the rank sums tie and placements average", func() {
			standings := ranking.CategoryStandings(perJudge)
			So(placementOf(standings, "a"), ShouldEqual, 1.5)
			So(placementOf(standings, "b"), ShouldEqual, 1.5)
		})
	})

	Convey("Given two judges who rank three contestants oppositely", t, func() {
		perJudge := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(90, 80, 70))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(70, 80, 90))},
		}

		Convey("Then every rank sum is equal and the whole field ties at 2", func() {
			standings := ranking.CategoryStandings(perJudge)
			for _, id := range []string{"a", "b", "c"} {
				So(placementOf(standings, id), ShouldEqual, 2)
			}
			for _, s := range standings {
				So(s.RankSum, ShouldEqual, 4)
			}
		})
	})

	Convey("Given a contestant whose score improves with one judge", t, func() {
		base := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(70, 80, 90))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(75, 85, 95))},
		}
		improved := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(86, 80, 90))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(75, 85, 95))},
		}

		Convey("Then the contestant's rank sum never worsens", func() {
			before := ranking.CategoryStandings(base)
			after := ranking.CategoryStandings(improved)

			var beforeSum, afterSum float64
			for _, s := range before {
				if s.ContestantID == "a" {
					beforeSum = s.RankSum
				}
			}
			for _, s := range after {
				if s.ContestantID == "a" {
					afterSum = s.RankSum
				}
			}
			So(afterSum, ShouldBeLessThanOrEqualTo, beforeSum)
		})
	})

	Convey("Given a judge who ranked only part of the field", t, func() {
		perJudge := []ranking.JudgeRanking{
			{JudgeID: "j1", Ranks: ranking.RankByJudge(totals(90, 80, 70))},
			{JudgeID: "j2", Ranks: ranking.RankByJudge(totals(60, 95))},
		}

		Convey("Then the missing contestant gets no default rank from j2", func() {
			standings := ranking.CategoryStandings(perJudge)
			for _, s := range standings {
				if s.ContestantID == "c" {
					// Only j1 ranked c: rank sum is j1's rank 3 alone.
					So(s.RankSum, ShouldEqual, 3)
					_, has := s.JudgeRanks["j2"]
					So(has, ShouldBeFalse)
				}
			}
		})
	})
}

func overallPlacementOf(standings []ranking.OverallStanding, contestantID string) float64 {
	for _, s := range standings {
		if s.ContestantID == contestantID {
			return s.Placement
		}
	}
	return 0
}

func TestOverallStandings(t *testing.T) {
	Convey("Given category standings across three categories", t, func() {
		gown := []ranking.CategoryStanding{
			{ContestantID: "a", Number: 1, Placement: 1},
			{ContestantID: "b", Number: 2, Placement: 2},
			{ContestantID: "c", Number: 3, Placement: 3},
		}
		talent := []ranking.CategoryStanding{
			{ContestantID: "a", Number: 1, Placement: 2},
			{ContestantID: "b", Number: 2, Placement: 1},
			{ContestantID: "c", Number: 3, Placement: 3},
		}
		interview := []ranking.CategoryStanding{
			{ContestantID: "a", Number: 1, Placement: 1},
			{ContestantID: "b", Number: 2, Placement: 3},
			{ContestantID: "c", Number: 3, Placement: 2},
		}
		byCategory := map[string][]ranking.CategoryStanding{
			"gown": gown, "talent": talent, "interview": interview,
		}

		Convey("When overall standings are computed", func() {
			overall := ranking.OverallStandings(byCategory)

			Convey("Then the lowest placement total wins", func() {
				// a: 1+2+1=4, b: 2+1+3=6, c: 3+3+2=8
				So(overallPlacementOf(overall, "a"), ShouldEqual, 1)
				So(overallPlacementOf(overall, "b"), ShouldEqual, 2)
				So(overallPlacementOf(overall, "c"), ShouldEqual, 3)
			})

			Convey("And the rows carry per-category placements", func() {
				for _, o := range overall {
					if o.ContestantID == "a" {
						So(o.CategoryPlacements["gown"], ShouldEqual, 1)
						So(o.CategoryPlacements["talent"], ShouldEqual, 2)
						So(o.TotalPoints, ShouldEqual, 4)
					}
				}
			})
		})
	})

	Convey("Given fractional category placements that tie overall", t, func() {
		byCategory := map[string][]ranking.CategoryStanding{
			"gown": {
				{ContestantID: "a", Number: 1, Placement: 1.5},
				{ContestantID: "b", Number: 2, Placement: 1.5},
			},
			"talent": {
				{ContestantID: "a", Number: 1, Placement: 2},
				{ContestantID: "b", Number: 2, Placement: 2},
			},
		}

		Convey("Then the tied pair shares the averaged overall placement", func() {
			overall := ranking.OverallStandings(byCategory)
			So(overallPlacementOf(overall, "a"), ShouldEqual, 1.5)
			So(overallPlacementOf(overall, "b"), ShouldEqual, 1.5)
		})
	})
}

func TestTitle(t *testing.T) {
	Convey("Given resolved overall placements", t, func() {
		Convey("Then the podium titles map by exact placement", func() {
			So(ranking.Title(1), ShouldEqual, "Winner")
			So(ranking.Title(2), ShouldEqual, "1st Runner-up")
			So(ranking.Title(3), ShouldEqual, "2nd Runner-up")
		})

		Convey("And fractional or deeper placements stay untitled", func() {
			So(ranking.Title(1.5), ShouldEqual, "")
			So(ranking.Title(4), ShouldEqual, "")
		})
	})
}
