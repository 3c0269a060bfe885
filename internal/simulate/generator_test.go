package simulate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

func simEvent() model.Event {
	return model.Event{
		Name: "Sim Event",
		Divisions: []model.Division{
			{ID: "miss", Label: "Miss"},
			{ID: "teen", Label: "Teen"},
		},
		Categories: []model.Category{
			{
				ID: "gown", Label: "Gown", Order: 1,
				Criteria: []model.Criterion{
					{ID: "poise", Label: "Poise", Percentage: 0.6},
					{ID: "fit", Label: "Fit", Percentage: 0.4},
				},
			},
			{
				ID: "talent", Label: "Talent", Order: 2,
				Criteria: []model.Criterion{
					{ID: "skill", Label: "Skill", Percentage: 1.0},
				},
			},
		},
		Judges: []model.Judge{
			{ID: "j1", Name: "One", DivisionID: "miss", AccessCode: "a"},
			{ID: "j2", Name: "Two", DivisionID: "miss", AccessCode: "b"},
			{ID: "j3", Name: "Three", DivisionID: "teen", AccessCode: "c"},
		},
		Contestants: []model.Contestant{
			{ID: "c1", Number: 1, Name: "Alpha", DivisionID: "miss"},
			{ID: "c2", Number: 2, Name: "Bravo", DivisionID: "miss"},
			{ID: "c3", Number: 3, Name: "Charlie", DivisionID: "miss"},
			{ID: "t1", Number: 1, Name: "Delta", DivisionID: "teen"},
		},
	}
}

func TestGenerateSubmissions(t *testing.T) {
	Convey("Given an event with two divisions", t, func() {
		event := simEvent()

		Convey("When generating submissions", func() {
			subs := generateSubmissions(event)

			Convey("Then each judge covers every category and own-division contestant", func() {
				// miss judges: 2 judges x 2 categories x 3 contestants = 12.
				// teen judge: 1 x 2 x 1 = 2.
				So(subs, ShouldHaveLength, 14)

				for _, sub := range subs {
					if sub.JudgeID == "j3" {
						So(sub.ContestantID, ShouldEqual, "t1")
						So(sub.DivisionID, ShouldEqual, "teen")
					} else {
						So(sub.DivisionID, ShouldEqual, "miss")
					}
				}
			})

			Convey("Then every raw score is legal for its criterion", func() {
				maxByCriterion := map[string]float64{"poise": 60, "fit": 40, "skill": 100}
				for _, sub := range subs {
					for criterionID, raw := range sub.Raw {
						So(raw, ShouldBeGreaterThanOrEqualTo, 0)
						So(raw, ShouldBeLessThanOrEqualTo, maxByCriterion[criterionID])
					}
				}
			})

			Convey("Then a submission carries a value for every criterion", func() {
				for _, sub := range subs {
					if sub.CategoryID == "gown" {
						So(sub.Raw, ShouldHaveLength, 2)
					} else {
						So(sub.Raw, ShouldHaveLength, 1)
					}
				}
			})
		})
	})
}

func TestGetRandomFloat(t *testing.T) {
	Convey("Given the random source", t, func() {
		Convey("Then draws stay within the half-open unit interval", func() {
			for i := 0; i < 1000; i++ {
				v := getRandomFloat()
				So(v, ShouldBeGreaterThanOrEqualTo, 0)
				So(v, ShouldBeLessThan, 1)
			}
		})
	})
}

func TestOracle(t *testing.T) {
	Convey("Given deterministic submissions", t, func() {
		event := simEvent()
		subs := []Submission{
			{JudgeID: "j1", DivisionID: "miss", CategoryID: "gown", ContestantID: "c1",
				Raw: map[string]float64{"poise": 58, "fit": 39}}, // 97
			{JudgeID: "j1", DivisionID: "miss", CategoryID: "gown", ContestantID: "c2",
				Raw: map[string]float64{"poise": 50, "fit": 30}}, // 80
			{JudgeID: "j2", DivisionID: "miss", CategoryID: "gown", ContestantID: "c1",
				Raw: map[string]float64{"poise": 52, "fit": 33}}, // 85
			{JudgeID: "j2", DivisionID: "miss", CategoryID: "gown", ContestantID: "c2",
				Raw: map[string]float64{"poise": 55, "fit": 35}}, // 90
			{JudgeID: "j1", DivisionID: "miss", CategoryID: "talent", ContestantID: "c1",
				Raw: map[string]float64{"skill": 95}},
			{JudgeID: "j1", DivisionID: "miss", CategoryID: "talent", ContestantID: "c2",
				Raw: map[string]float64{"skill": 80}},
			{JudgeID: "j2", DivisionID: "miss", CategoryID: "talent", ContestantID: "c1",
				Raw: map[string]float64{"skill": 90}},
			{JudgeID: "j2", DivisionID: "miss", CategoryID: "talent", ContestantID: "c2",
				Raw: map[string]float64{"skill": 85}},
		}
		o := newOracle(event, subs)

		Convey("When replaying the gown category", func() {
			standings, err := o.categoryStandings("miss", "gown")
			So(err, ShouldBeNil)

			Convey("Then the judges split and the placements tie", func() {
				So(standings, ShouldHaveLength, 2)
				for _, s := range standings {
					So(s.RankSum, ShouldEqual, 3)
					So(s.Placement, ShouldEqual, 1.5)
				}
			})
		})

		Convey("When replaying the overall standings", func() {
			overall, err := o.overallStandings("miss")
			So(err, ShouldBeNil)

			Convey("Then talent breaks the gown tie", func() {
				So(overall, ShouldHaveLength, 2)
				So(overall[0].ContestantID, ShouldEqual, "c1")
				So(overall[0].Placement, ShouldEqual, 1)
				So(overall[1].ContestantID, ShouldEqual, "c2")
			})
		})

		Convey("When a division has no submissions", func() {
			standings, err := o.categoryStandings("teen", "gown")
			So(err, ShouldBeNil)
			So(standings, ShouldBeEmpty)

			overall, err := o.overallStandings("teen")
			So(err, ShouldBeNil)
			So(overall, ShouldBeEmpty)
		})

		Convey("When a generated score breaks a criterion bound", func() {
			bad := append(subs, Submission{
				JudgeID: "j1", DivisionID: "miss", CategoryID: "gown", ContestantID: "c3",
				Raw: map[string]float64{"poise": 61, "fit": 10},
			})
			_, err := newOracle(event, bad).categoryStandings("miss", "gown")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOracleMatchesGenerated(t *testing.T) {
	Convey("Given randomly generated submissions", t, func() {
		event := simEvent()
		subs := generateSubmissions(event)
		o := newOracle(event, subs)

		Convey("When replaying every division", func() {
			for _, div := range event.Divisions {
				overall, err := o.overallStandings(div.ID)
				So(err, ShouldBeNil)

				Convey("Then division "+div.ID+" placements are a valid permutation with tie averages", func() {
					var sum float64
					for _, s := range overall {
						sum += s.Placement
					}
					n := float64(len(overall))
					So(sum, ShouldAlmostEqual, n*(n+1)/2, 1e-9)
				})
			}
		})
	})
}
