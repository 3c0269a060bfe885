package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

type scoreKey struct {
	judgeID      string
	contestantID string
	categoryID   string
	criterionID  string
}

type lockKey struct {
	judgeID      string
	categoryID   string
	contestantID string
}

// MemStore implements Store with mutex-guarded maps. A single lock covers
// both score rows and submission locks, which makes the lock check and the
// score writes of UpsertScores trivially linearizable per tuple.
type MemStore struct {
	mu sync.RWMutex

	seeded      bool
	divisions   []model.Division
	categories  []model.Category
	judges      []model.Judge
	contestants []model.Contestant

	criteria       map[string]model.Criterion // criterion id -> criterion
	judgeByID      map[string]model.Judge
	contestantByID map[string]model.Contestant
	judgeByCode    map[string]model.Judge

	scores map[scoreKey]model.Score
	locks  map[lockKey]struct{}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(_ context.Context) *MemStore {
	return &MemStore{
		criteria:       make(map[string]model.Criterion),
		judgeByID:      make(map[string]model.Judge),
		contestantByID: make(map[string]model.Contestant),
		judgeByCode:    make(map[string]model.Judge),
		scores:         make(map[scoreKey]model.Score),
		locks:          make(map[lockKey]struct{}),
	}
}

// Seed loads the event definition.
func (s *MemStore) Seed(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.divisions = append([]model.Division(nil), event.Divisions...)
	s.categories = append([]model.Category(nil), event.Categories...)
	s.judges = append([]model.Judge(nil), event.Judges...)
	s.contestants = append([]model.Contestant(nil), event.Contestants...)
	sort.SliceStable(s.categories, func(i, j int) bool { return s.categories[i].Order < s.categories[j].Order })

	s.criteria = make(map[string]model.Criterion)
	for _, cat := range s.categories {
		for _, cr := range cat.Criteria {
			cr.CategoryID = cat.ID
			s.criteria[cr.ID] = cr
		}
	}
	s.judgeByID = make(map[string]model.Judge, len(s.judges))
	s.judgeByCode = make(map[string]model.Judge, len(s.judges))
	for _, j := range s.judges {
		s.judgeByID[j.ID] = j
		s.judgeByCode[j.AccessCode] = j
	}
	s.contestantByID = make(map[string]model.Contestant, len(s.contestants))
	for _, c := range s.contestants {
		s.contestantByID[c.ID] = c
	}

	s.seeded = true
	return nil
}

// Divisions returns all divisions.
func (s *MemStore) Divisions(_ context.Context) ([]model.Division, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seeded {
		return nil, ErrNotSeeded
	}
	return append([]model.Division(nil), s.divisions...), nil
}

// Categories returns all categories in event order.
func (s *MemStore) Categories(_ context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seeded {
		return nil, ErrNotSeeded
	}
	return append([]model.Category(nil), s.categories...), nil
}

// Criteria returns the criteria of one category.
func (s *MemStore) Criteria(_ context.Context, categoryID string) ([]model.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seeded {
		return nil, ErrNotSeeded
	}
	for _, cat := range s.categories {
		if cat.ID == categoryID {
			out := make([]model.Criterion, len(cat.Criteria))
			for i, cr := range cat.Criteria {
				cr.CategoryID = cat.ID
				out[i] = cr
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
}

// Judges returns judges, optionally narrowed to a division.
func (s *MemStore) Judges(_ context.Context, divisionID string) ([]model.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seeded {
		return nil, ErrNotSeeded
	}
	out := make([]model.Judge, 0, len(s.judges))
	for _, j := range s.judges {
		if divisionID == "" || j.DivisionID == divisionID {
			out = append(out, j)
		}
	}
	return out, nil
}

// Contestants returns contestants, optionally narrowed to a division,
// ordered by display number.
func (s *MemStore) Contestants(_ context.Context, divisionID string) ([]model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seeded {
		return nil, ErrNotSeeded
	}
	out := make([]model.Contestant, 0, len(s.contestants))
	for _, c := range s.contestants {
		if divisionID == "" || c.DivisionID == divisionID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// JudgeByID resolves a judge by id.
func (s *MemStore) JudgeByID(_ context.Context, id string) (model.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.judgeByID[id]
	if !ok {
		return model.Judge{}, fmt.Errorf("judge %s: %w", id, ErrNotFound)
	}
	return j, nil
}

// ContestantByID resolves a contestant by id.
func (s *MemStore) ContestantByID(_ context.Context, id string) (model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contestantByID[id]
	if !ok {
		return model.Contestant{}, fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// JudgeByAccessCode resolves a judge by access code for login.
func (s *MemStore) JudgeByAccessCode(_ context.Context, code string) (model.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.judgeByCode[code]
	if !ok {
		return model.Judge{}, fmt.Errorf("access code: %w", ErrNotFound)
	}
	return j, nil
}

// UpsertScores writes all rows or none. The lock check precedes every write
// and happens under the same critical section, so a racing CreateLock for
// the tuple either sees no rows or rejects the whole batch.
func (s *MemStore) UpsertScores(_ context.Context, rows []model.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		return ErrNotSeeded
	}

	for _, r := range rows {
		cr, ok := s.criteria[r.CriterionID]
		if !ok || cr.CategoryID != r.CategoryID {
			return fmt.Errorf("criterion %s in category %s: %w", r.CriterionID, r.CategoryID, ErrUnknownCriterion)
		}
		lk := lockKey{judgeID: r.JudgeID, categoryID: r.CategoryID, contestantID: r.ContestantID}
		if _, locked := s.locks[lk]; locked {
			return fmt.Errorf("judge %s category %s contestant %s: %w", r.JudgeID, r.CategoryID, r.ContestantID, ErrLocked)
		}
	}
	for _, r := range rows {
		k := scoreKey{judgeID: r.JudgeID, contestantID: r.ContestantID, categoryID: r.CategoryID, criterionID: r.CriterionID}
		s.scores[k] = r
	}
	return nil
}

// ListScores returns rows matching the filter in a stable order.
func (s *MemStore) ListScores(_ context.Context, f ScoreFilter) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Score, 0, len(s.scores))
	for _, r := range s.scores {
		if f.JudgeID != "" && r.JudgeID != f.JudgeID {
			continue
		}
		if f.CategoryID != "" && r.CategoryID != f.CategoryID {
			continue
		}
		if f.ContestantID != "" && r.ContestantID != f.ContestantID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.JudgeID != b.JudgeID {
			return a.JudgeID < b.JudgeID
		}
		if a.ContestantID != b.ContestantID {
			return a.ContestantID < b.ContestantID
		}
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		return a.CriterionID < b.CriterionID
	})
	return out, nil
}

// CreateLock marks the tuple immutable; re-locking is a no-op.
func (s *MemStore) CreateLock(_ context.Context, l model.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lockKey{judgeID: l.JudgeID, categoryID: l.CategoryID, contestantID: l.ContestantID}] = struct{}{}
	return nil
}

// RemoveLock reopens scoring for the tuple.
func (s *MemStore) RemoveLock(_ context.Context, l model.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := lockKey{judgeID: l.JudgeID, categoryID: l.CategoryID, contestantID: l.ContestantID}
	if _, ok := s.locks[k]; !ok {
		return fmt.Errorf("lock %s/%s/%s: %w", l.JudgeID, l.CategoryID, l.ContestantID, ErrNotFound)
	}
	delete(s.locks, k)
	return nil
}

// IsLocked reports whether the tuple carries a lock.
func (s *MemStore) IsLocked(_ context.Context, l model.Lock) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locks[lockKey{judgeID: l.JudgeID, categoryID: l.CategoryID, contestantID: l.ContestantID}]
	return ok, nil
}

// ListLocks returns locks matching the filter in a stable order.
func (s *MemStore) ListLocks(_ context.Context, f LockFilter) ([]model.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Lock, 0, len(s.locks))
	for k := range s.locks {
		if f.JudgeID != "" && k.judgeID != f.JudgeID {
			continue
		}
		if f.CategoryID != "" && k.categoryID != f.CategoryID {
			continue
		}
		out = append(out, model.Lock{JudgeID: k.judgeID, CategoryID: k.categoryID, ContestantID: k.contestantID})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.JudgeID != b.JudgeID {
			return a.JudgeID < b.JudgeID
		}
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		return a.ContestantID < b.ContestantID
	})
	return out, nil
}

// Counts returns store totals.
func (s *MemStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Divisions:   len(s.divisions),
		Categories:  len(s.categories),
		Judges:      len(s.judges),
		Contestants: len(s.contestants),
		Scores:      len(s.scores),
		Locks:       len(s.locks),
	}, nil
}
