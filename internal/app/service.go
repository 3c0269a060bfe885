// Package app provides the core business service that implements the
// dependencies required by the HTTP API: the submission flow (validate,
// upsert, lock), on-demand rank-sum tabulation, insights, and export rows.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tiaraboard/tiara/internal/adapters/mq/queue"
	workerpool "github.com/tiaraboard/tiara/internal/adapters/mq/worker"
	"github.com/tiaraboard/tiara/internal/adapters/repository"
	"github.com/tiaraboard/tiara/internal/domain/coalesce"
	"github.com/tiaraboard/tiara/internal/domain/insight"
	"github.com/tiaraboard/tiara/internal/domain/model"
	"github.com/tiaraboard/tiara/internal/domain/ranking"
	"github.com/tiaraboard/tiara/internal/domain/scoring"
	"github.com/tiaraboard/tiara/internal/domain/types"
	"github.com/tiaraboard/tiara/pkg/logger"
	"github.com/tiaraboard/tiara/pkg/metrics"
)

// CriterionScore is one raw input on a submission.
type CriterionScore struct {
	CriterionID string  `json:"criterion_id"`
	RawScore    float64 `json:"raw_score"`
}

// Submission is one judge's scoring action for a contestant in a category.
// Writing the scores and creating the lock form one logical operation; when
// only the lock step fails the submission is incomplete and the lock step
// alone is retried.
type Submission struct {
	JudgeID      string
	CategoryID   string
	ContestantID string
	Scores       []CriterionScore
}

// SubmissionResult reports what the submission flow achieved.
type SubmissionResult struct {
	Locked bool `json:"locked"`
	Rows   int  `json:"rows"`
}

// Service implements the API dependencies for the tabulation system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	refreshes  queue.Queue
	tracker    coalesce.Tracker
	workerPool *workerpool.Pool

	storeDriver string
	storeDSN    string
	event       model.Event

	queueCapacity   int
	workerCount     int
	coalesceMaxSize int

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreDriver selects the store backend: memory, sqlite, postgres.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
		}
		s.storeDSN = dsn
	}
}

// WithStore injects a prebuilt store, overriding the driver selection.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEvent sets the competition definition seeded at startup.
func WithEvent(event model.Event) Option {
	return func(s *Service) {
		s.event = event
	}
}

// WithQueueCapacity bounds the refresh queue.
func WithQueueCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.queueCapacity = capacity
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithCoalesceMaxSize caps the pending-refresh tracker.
func WithCoalesceMaxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.coalesceMaxSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:     "memory",
		queueCapacity:   1024,
		workerCount:     2,
		coalesceMaxSize: 4096,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	if s.store == nil {
		switch s.storeDriver {
		case "memory":
			s.store = repository.NewMemStore(ctx)
		case "sqlite", "postgres":
			db, err := repository.Open(ctx, repository.Driver(s.storeDriver), s.storeDSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			s.store = repository.NewSQLStore(db)
		default:
			return fmt.Errorf("unknown store driver %q", s.storeDriver)
		}
	}
	s.logger.Info(ctx, "using store", logger.String("driver", s.storeDriver))

	if err := s.store.Seed(ctx, s.event); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}

	s.tracker = coalesce.NewInMemoryTracker(coalesce.WithMaxSize(s.coalesceMaxSize))
	s.refreshes = queue.NewInMemoryQueue(queue.WithCapacity(s.queueCapacity))
	s.workerPool = workerpool.NewPool(s.workerCount, s.refreshes, s, s.tracker)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "tabulation service started",
		logger.String("event", s.event.Name),
		logger.Int("divisions", len(s.event.Divisions)),
		logger.Int("categories", len(s.event.Categories)),
		logger.Int("judges", len(s.event.Judges)),
		logger.Int("contestants", len(s.event.Contestants)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if s.refreshes != nil {
		_ = s.refreshes.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "tabulation service stopped")
}

// SubmitScores validates, writes and locks one judge's scores for a
// contestant in a category. On ErrLockPending the scores are durable and
// unlocked; the caller retries Lock.
func (s *Service) SubmitScores(ctx context.Context, sub Submission) (SubmissionResult, error) {
	judge, err := s.store.JudgeByID(ctx, sub.JudgeID)
	if err != nil {
		return SubmissionResult{}, err
	}
	contestant, err := s.store.ContestantByID(ctx, sub.ContestantID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if judge.DivisionID != contestant.DivisionID {
		return SubmissionResult{}, fmt.Errorf("judge %s cannot score contestant %s: %w",
			judge.ID, contestant.ID, ErrDivisionMismatch)
	}

	criteria, err := s.store.Criteria(ctx, sub.CategoryID)
	if err != nil {
		return SubmissionResult{}, err
	}
	byID := make(map[string]model.Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	rows := make([]model.Score, 0, len(sub.Scores))
	for _, in := range sub.Scores {
		criterion, ok := byID[in.CriterionID]
		if !ok {
			return SubmissionResult{}, fmt.Errorf("criterion %s in category %s: %w",
				in.CriterionID, sub.CategoryID, repository.ErrUnknownCriterion)
		}
		weighted, err := scoring.Weighted(in.RawScore, criterion)
		if err != nil {
			metrics.RecordValidationFailure()
			return SubmissionResult{}, err
		}
		rows = append(rows, model.Score{
			JudgeID:       sub.JudgeID,
			ContestantID:  sub.ContestantID,
			CategoryID:    sub.CategoryID,
			CriterionID:   in.CriterionID,
			RawScore:      in.RawScore,
			WeightedScore: weighted,
		})
	}

	if err := s.store.UpsertScores(ctx, rows); err != nil {
		if errors.Is(err, repository.ErrLocked) {
			metrics.RecordLockConflict()
		}
		return SubmissionResult{}, err
	}

	lock := model.Lock{JudgeID: sub.JudgeID, CategoryID: sub.CategoryID, ContestantID: sub.ContestantID}
	if err := s.store.CreateLock(ctx, lock); err != nil {
		// Scores are durable; only the lock step is retried.
		metrics.RecordSubmissionIncomplete()
		s.logger.Warn(ctx, "scores written but lock failed",
			logger.String("judge", sub.JudgeID),
			logger.String("category", sub.CategoryID),
			logger.String("contestant", sub.ContestantID),
			logger.Error(err),
		)
		return SubmissionResult{Locked: false, Rows: len(rows)},
			fmt.Errorf("%w: %w", ErrLockPending, err)
	}
	metrics.RecordLockCreated()
	metrics.RecordSubmissionAccepted()

	s.publishRefresh(ctx, model.RefreshEvent{DivisionID: judge.DivisionID, CategoryID: sub.CategoryID})
	return SubmissionResult{Locked: true, Rows: len(rows)}, nil
}

// Lock is the idempotent retry path for an incomplete submission.
func (s *Service) Lock(ctx context.Context, judgeID, categoryID, contestantID string) error {
	judge, err := s.store.JudgeByID(ctx, judgeID)
	if err != nil {
		return err
	}
	err = s.store.CreateLock(ctx, model.Lock{JudgeID: judgeID, CategoryID: categoryID, ContestantID: contestantID})
	if err != nil {
		return err
	}
	metrics.RecordLockCreated()
	s.publishRefresh(ctx, model.RefreshEvent{DivisionID: judge.DivisionID, CategoryID: categoryID})
	return nil
}

// Unlock removes a submission lock, reopening scoring. The HTTP layer
// restricts it to administrators.
func (s *Service) Unlock(ctx context.Context, judgeID, categoryID, contestantID string) error {
	judge, err := s.store.JudgeByID(ctx, judgeID)
	if err != nil {
		return err
	}
	err = s.store.RemoveLock(ctx, model.Lock{JudgeID: judgeID, CategoryID: categoryID, ContestantID: contestantID})
	if err != nil {
		return err
	}
	metrics.RecordLockRemoved()
	s.publishRefresh(ctx, model.RefreshEvent{DivisionID: judge.DivisionID, CategoryID: categoryID})
	return nil
}

// publishRefresh enqueues a recompute hint unless one is already pending
// for the same key.
func (s *Service) publishRefresh(ctx context.Context, e model.RefreshEvent) {
	if s.tracker == nil || s.refreshes == nil {
		return
	}
	if s.tracker.PendingAndMark(ctx, e.Key()) {
		metrics.RecordRefreshCoalesced()
		return
	}
	if !s.refreshes.Enqueue(ctx, e) {
		// Nothing lost: reads recompute from the store regardless.
		s.tracker.Clear(ctx, e.Key())
	}
}

// categoryStandings computes the rank-sum table for one category in one
// division from a fresh read of locks and scores.
func (s *Service) categoryStandings(ctx context.Context, divisionID, categoryID string) ([]ranking.CategoryStanding, error) {
	contestants, err := s.store.Contestants(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	inDivision := make(map[string]model.Contestant, len(contestants))
	for _, c := range contestants {
		inDivision[c.ID] = c
	}

	judges, err := s.store.Judges(ctx, divisionID)
	if err != nil {
		return nil, err
	}

	locks, err := s.store.ListLocks(ctx, repository.LockFilter{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	locked := make(map[string]map[string]bool) // judge id -> contestant id -> locked
	for _, l := range locks {
		if locked[l.JudgeID] == nil {
			locked[l.JudgeID] = make(map[string]bool)
		}
		locked[l.JudgeID][l.ContestantID] = true
	}

	scores, err := s.store.ListScores(ctx, repository.ScoreFilter{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	// judge id -> contestant id -> summed weighted score
	totals := make(map[string]map[string]float64)
	for _, r := range scores {
		if totals[r.JudgeID] == nil {
			totals[r.JudgeID] = make(map[string]float64)
		}
		totals[r.JudgeID][r.ContestantID] += r.WeightedScore
	}

	perJudge := make([]ranking.JudgeRanking, 0, len(judges))
	for _, j := range judges {
		var eligible []ranking.ContestantTotal
		for contestantID, total := range totals[j.ID] {
			c, ok := inDivision[contestantID]
			if !ok || !locked[j.ID][contestantID] {
				continue // unsubmitted rows never rank
			}
			eligible = append(eligible, ranking.ContestantTotal{
				ContestantID: contestantID,
				Number:       c.Number,
				Total:        total,
			})
		}
		if len(eligible) == 0 {
			continue
		}
		perJudge = append(perJudge, ranking.JudgeRanking{
			JudgeID: j.ID,
			Ranks:   ranking.RankByJudge(eligible),
		})
	}
	return ranking.CategoryStandings(perJudge), nil
}

// overallStandings computes each category's standings and folds them into
// the overall rank-sum of placements.
func (s *Service) overallStandings(ctx context.Context, divisionID string) (map[string][]ranking.CategoryStanding, []ranking.OverallStanding, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, nil, err
	}
	byCategory := make(map[string][]ranking.CategoryStanding, len(categories))
	for _, cat := range categories {
		standings, err := s.categoryStandings(ctx, divisionID, cat.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(standings) > 0 {
			byCategory[cat.ID] = standings
		}
	}
	return byCategory, ranking.OverallStandings(byCategory), nil
}

// CategoryStandings returns the category table decorated for presentation
// and export.
func (s *Service) CategoryStandings(ctx context.Context, divisionID, categoryID string) ([]types.CategoryRow, error) {
	standings, err := s.categoryStandings(ctx, divisionID, categoryID)
	if err != nil {
		return nil, err
	}
	names, err := s.contestantNames(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	rows := make([]types.CategoryRow, len(standings))
	for i, st := range standings {
		rows[i] = types.CategoryRow{
			DivisionID:   divisionID,
			CategoryID:   categoryID,
			ContestantID: st.ContestantID,
			Number:       st.Number,
			Name:         names[st.ContestantID],
			JudgeRanks:   st.JudgeRanks,
			RankSum:      st.RankSum,
			Placement:    st.Placement,
		}
	}
	return rows, nil
}

// OverallStandings returns the overall table decorated for presentation
// and export.
func (s *Service) OverallStandings(ctx context.Context, divisionID string) ([]types.OverallRow, error) {
	_, overall, err := s.overallStandings(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	names, err := s.contestantNames(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	rows := make([]types.OverallRow, len(overall))
	for i, st := range overall {
		rows[i] = types.OverallRow{
			DivisionID:         divisionID,
			ContestantID:       st.ContestantID,
			Number:             st.Number,
			Name:               names[st.ContestantID],
			CategoryPlacements: st.CategoryPlacements,
			TotalPoints:        st.TotalPoints,
			Placement:          st.Placement,
			Title:              ranking.Title(st.Placement),
		}
	}
	return rows, nil
}

// Insights derives the analytics report for one contestant.
func (s *Service) Insights(ctx context.Context, divisionID, contestantID string) (insight.Report, error) {
	_, overall, err := s.overallStandings(ctx, divisionID)
	if err != nil {
		return insight.Report{}, err
	}
	report, ok := insight.Build(contestantID, overall)
	if !ok {
		return insight.Report{}, fmt.Errorf("contestant %s has no standings in division %s: %w",
			contestantID, divisionID, repository.ErrNotFound)
	}
	return report, nil
}

// HeadToHead compares two contestants category by category and overall.
func (s *Service) HeadToHead(ctx context.Context, divisionID, a, b string) (insight.HeadToHead, error) {
	byCategory, overall, err := s.overallStandings(ctx, divisionID)
	if err != nil {
		return insight.HeadToHead{}, err
	}
	return insight.Compare(a, b, byCategory, overall), nil
}

// JudgeSheet returns one judge's saved scores and lock state for a category.
func (s *Service) JudgeSheet(ctx context.Context, judgeID, categoryID string) ([]types.SheetEntry, error) {
	scores, err := s.store.ListScores(ctx, repository.ScoreFilter{JudgeID: judgeID, CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	locks, err := s.store.ListLocks(ctx, repository.LockFilter{JudgeID: judgeID, CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	locked := make(map[string]bool, len(locks))
	for _, l := range locks {
		locked[l.ContestantID] = true
	}
	entries := make([]types.SheetEntry, len(scores))
	for i, r := range scores {
		entries[i] = types.SheetEntry{
			ContestantID:  r.ContestantID,
			CriterionID:   r.CriterionID,
			RawScore:      r.RawScore,
			WeightedScore: r.WeightedScore,
			Locked:        locked[r.ContestantID],
		}
	}
	return entries, nil
}

// JudgeByAccessCode resolves a judge for login.
func (s *Service) JudgeByAccessCode(ctx context.Context, code string) (model.Judge, error) {
	return s.store.JudgeByAccessCode(ctx, code)
}

// Divisions lists the event's divisions.
func (s *Service) Divisions(ctx context.Context) ([]model.Division, error) {
	return s.store.Divisions(ctx)
}

// Categories lists the event's categories in order.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.store.Categories(ctx)
}

// Contestants lists a division's contestants by number.
func (s *Service) Contestants(ctx context.Context, divisionID string) ([]model.Contestant, error) {
	return s.store.Contestants(ctx, divisionID)
}

// Refresh implements the recompute worker contract: rebuild standings for
// the division the event names and refresh scale gauges. Reads never depend
// on this; it keeps derived observability state warm.
func (s *Service) Refresh(ctx context.Context, e model.RefreshEvent) error {
	start := time.Now()
	_, overall, err := s.overallStandings(ctx, e.DivisionID)
	if err != nil {
		return err
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return err
	}
	metrics.UpdateContestants(counts.Contestants)
	metrics.UpdateJudges(counts.Judges)
	metrics.UpdateScoreRows(counts.Scores)
	metrics.UpdateSubmissionLocks(counts.Locks)

	if len(overall) > 0 {
		s.logger.Debug(ctx, "standings recomputed",
			logger.String("division", e.DivisionID),
			logger.Int("ranked", len(overall)),
			logger.Int("leader", overall[0].Number),
			logger.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"event":       s.event.Name,
		"storeDriver": s.storeDriver,
		"workerCount": s.workerCount,
	}
	if !s.started {
		return stats
	}
	stats["queueDepth"] = s.refreshes.Len(ctx)
	stats["pendingRefreshes"] = s.tracker.Size()
	if counts, err := s.store.Counts(ctx); err == nil {
		stats["scores"] = counts.Scores
		stats["locks"] = counts.Locks
		stats["judges"] = counts.Judges
		stats["contestants"] = counts.Contestants
	}
	return stats
}

func (s *Service) contestantNames(ctx context.Context, divisionID string) (map[string]string, error) {
	contestants, err := s.store.Contestants(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(contestants))
	for _, c := range contestants {
		names[c.ID] = c.Name
	}
	return names, nil
}
