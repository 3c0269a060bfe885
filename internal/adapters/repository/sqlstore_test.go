package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/adapters/repository"
	"github.com/tiaraboard/tiara/internal/domain/model"
)

var sqliteTestDB atomic.Int64

// newSQLStore opens a fresh shared in-memory sqlite database per test so
// cases never see each other's rows.
func newSQLStore(ctx context.Context) (*repository.SQLStore, error) {
	n := sqliteTestDB.Add(1)
	dsn := fmt.Sprintf("file:sqlstore_test_%d?mode=memory&cache=shared", n)
	db, err := repository.Open(ctx, repository.DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	return repository.NewSQLStore(db), nil
}

func TestSQLStore(t *testing.T) {
	Convey("Given a seeded sqlite store", t, func() {
		ctx := context.Background()
		store, err := newSQLStore(ctx)
		So(err, ShouldBeNil)
		So(store.Seed(ctx, testEvent()), ShouldBeNil)

		Convey("When reading the seeded entities", func() {
			Convey("Then categories come back in event order with criteria", func() {
				categories, err := store.Categories(ctx)
				So(err, ShouldBeNil)
				So(categories, ShouldHaveLength, 2)
				So(categories[0].ID, ShouldEqual, "gown")
				So(categories[1].ID, ShouldEqual, "talent")
				So(categories[1].Criteria, ShouldHaveLength, 2)
			})

			Convey("And judges resolve by access code", func() {
				j, err := store.JudgeByAccessCode(ctx, "code-j1")
				So(err, ShouldBeNil)
				So(j.ID, ShouldEqual, "j1")

				_, err = store.JudgeByAccessCode(ctx, "wrong")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And contestants filter by division", func() {
				contestants, err := store.Contestants(ctx, "teen")
				So(err, ShouldBeNil)
				So(contestants, ShouldHaveLength, 1)
				So(contestants[0].ID, ShouldEqual, "c3")
			})
		})

		Convey("When re-seeding the same event", func() {
			Convey("Then the upserts keep a single copy of each entity", func() {
				So(store.Seed(ctx, testEvent()), ShouldBeNil)
				counts, err := store.Counts(ctx)
				So(err, ShouldBeNil)
				So(counts.Divisions, ShouldEqual, 2)
				So(counts.Judges, ShouldEqual, 2)
				So(counts.Contestants, ShouldEqual, 3)
			})
		})

		Convey("When upserting scores", func() {
			rows := []model.Score{
				scoreRow("j1", "c1", "talent", "skill", 55),
				scoreRow("j1", "c1", "talent", "stage", 35),
			}

			Convey("Then unlocked rows land and re-upserts overwrite", func() {
				So(store.UpsertScores(ctx, rows), ShouldBeNil)
				rows[1].RawScore = 30
				So(store.UpsertScores(ctx, rows), ShouldBeNil)

				got, err := store.ListScores(ctx, repository.ScoreFilter{JudgeID: "j1", CategoryID: "talent"})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				for _, r := range got {
					if r.CriterionID == "stage" {
						So(r.RawScore, ShouldEqual, 30)
					}
				}
			})
		})

		Convey("When a submission lock exists", func() {
			lock := model.Lock{JudgeID: "j1", CategoryID: "talent", ContestantID: "c1"}
			rows := []model.Score{scoreRow("j1", "c1", "talent", "skill", 50)}

			So(store.UpsertScores(ctx, rows), ShouldBeNil)
			So(store.CreateLock(ctx, lock), ShouldBeNil)

			Convey("Then writes for the tuple are rejected atomically", func() {
				err := store.UpsertScores(ctx, []model.Score{
					scoreRow("j1", "c1", "talent", "skill", 60),
					scoreRow("j1", "c1", "talent", "stage", 10),
				})
				So(errors.Is(err, repository.ErrLocked), ShouldBeTrue)

				got, _ := store.ListScores(ctx, repository.ScoreFilter{JudgeID: "j1"})
				So(got, ShouldHaveLength, 1)
				So(got[0].RawScore, ShouldEqual, 50)
			})

			Convey("And creating the lock again is a no-op", func() {
				So(store.CreateLock(ctx, lock), ShouldBeNil)
				locked, err := store.IsLocked(ctx, lock)
				So(err, ShouldBeNil)
				So(locked, ShouldBeTrue)
			})

			Convey("And removing it reopens scoring", func() {
				So(store.RemoveLock(ctx, lock), ShouldBeNil)
				So(store.UpsertScores(ctx, rows), ShouldBeNil)
			})

			Convey("And removing an absent lock reports not found", func() {
				absent := model.Lock{JudgeID: "j2", CategoryID: "gown", ContestantID: "c2"}
				So(errors.Is(store.RemoveLock(ctx, absent), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When listing locks with filters", func() {
			So(store.CreateLock(ctx, model.Lock{JudgeID: "j1", CategoryID: "talent", ContestantID: "c1"}), ShouldBeNil)
			So(store.CreateLock(ctx, model.Lock{JudgeID: "j2", CategoryID: "talent", ContestantID: "c1"}), ShouldBeNil)
			So(store.CreateLock(ctx, model.Lock{JudgeID: "j1", CategoryID: "gown", ContestantID: "c2"}), ShouldBeNil)

			locks, err := store.ListLocks(ctx, repository.LockFilter{CategoryID: "talent"})
			So(err, ShouldBeNil)
			So(locks, ShouldHaveLength, 2)

			locks, err = store.ListLocks(ctx, repository.LockFilter{JudgeID: "j1"})
			So(err, ShouldBeNil)
			So(locks, ShouldHaveLength, 2)
		})

		Convey("When counting store contents", func() {
			So(store.UpsertScores(ctx, []model.Score{scoreRow("j2", "c2", "gown", "poise", 80)}), ShouldBeNil)
			So(store.CreateLock(ctx, model.Lock{JudgeID: "j2", CategoryID: "gown", ContestantID: "c2"}), ShouldBeNil)

			counts, err := store.Counts(ctx)
			So(err, ShouldBeNil)
			So(counts.Scores, ShouldEqual, 1)
			So(counts.Locks, ShouldEqual, 1)
		})
	})

	Convey("Given an unsupported driver", t, func() {
		ctx := context.Background()

		Convey("Then Open rejects it", func() {
			_, err := repository.Open(ctx, repository.Driver("oracle"), "")
			So(err, ShouldNotBeNil)
		})
	})
}
