package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tiaraboard/tiara/internal/domain/model"
)

// SQLStore implements Store over database/sql. Linearizability of the lock
// check against score writes comes from running both in one transaction on
// top of the natural-key constraints in the schema.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an opened database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Seed loads the event definition, upserting every entity on its id.
func (s *SQLStore) Seed(ctx context.Context, event model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range event.Divisions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO divisions (id, label) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label`,
			d.ID, d.Label); err != nil {
			return fmt.Errorf("seed division %s: %w", d.ID, err)
		}
	}
	for _, cat := range event.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, label, ord, weight) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, ord = EXCLUDED.ord, weight = EXCLUDED.weight`,
			cat.ID, cat.Label, cat.Order, cat.Weight); err != nil {
			return fmt.Errorf("seed category %s: %w", cat.ID, err)
		}
		for _, cr := range cat.Criteria {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO criteria (id, category_id, label, percentage) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO UPDATE SET category_id = EXCLUDED.category_id, label = EXCLUDED.label, percentage = EXCLUDED.percentage`,
				cr.ID, cat.ID, cr.Label, cr.Percentage); err != nil {
				return fmt.Errorf("seed criterion %s: %w", cr.ID, err)
			}
		}
	}
	for _, j := range event.Judges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO judges (id, name, division_id, access_code) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, division_id = EXCLUDED.division_id, access_code = EXCLUDED.access_code`,
			j.ID, j.Name, j.DivisionID, j.AccessCode); err != nil {
			return fmt.Errorf("seed judge %s: %w", j.ID, err)
		}
	}
	for _, c := range event.Contestants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contestants (id, number, name, division_id) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET number = EXCLUDED.number, name = EXCLUDED.name, division_id = EXCLUDED.division_id`,
			c.ID, c.Number, c.Name, c.DivisionID); err != nil {
			return fmt.Errorf("seed contestant %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// Divisions returns all divisions.
func (s *SQLStore) Divisions(ctx context.Context) ([]model.Division, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label FROM divisions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	defer rows.Close()

	var out []model.Division
	for rows.Next() {
		var d model.Division
		if err := rows.Scan(&d.ID, &d.Label); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Categories returns all categories with their criteria, in event order.
func (s *SQLStore) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, ord, weight FROM categories ORDER BY ord, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Label, &cat.Order, &cat.Weight); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		crit, err := s.Criteria(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Criteria = crit
	}
	return out, nil
}

// Criteria returns the criteria of one category.
func (s *SQLStore) Criteria(ctx context.Context, categoryID string) ([]model.Criterion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, label, percentage FROM criteria WHERE category_id = $1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	defer rows.Close()

	var out []model.Criterion
	for rows.Next() {
		var cr model.Criterion
		if err := rows.Scan(&cr.ID, &cr.CategoryID, &cr.Label, &cr.Percentage); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Judges returns judges, optionally narrowed to a division.
func (s *SQLStore) Judges(ctx context.Context, divisionID string) ([]model.Judge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, division_id, access_code FROM judges WHERE ($1 = '' OR division_id = $1) ORDER BY id`, divisionID)
	if err != nil {
		return nil, fmt.Errorf("list judges: %w", err)
	}
	defer rows.Close()

	var out []model.Judge
	for rows.Next() {
		var j model.Judge
		if err := rows.Scan(&j.ID, &j.Name, &j.DivisionID, &j.AccessCode); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Contestants returns contestants ordered by display number.
func (s *SQLStore) Contestants(ctx context.Context, divisionID string) ([]model.Contestant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, name, division_id FROM contestants WHERE ($1 = '' OR division_id = $1) ORDER BY number`, divisionID)
	if err != nil {
		return nil, fmt.Errorf("list contestants: %w", err)
	}
	defer rows.Close()

	var out []model.Contestant
	for rows.Next() {
		var c model.Contestant
		if err := rows.Scan(&c.ID, &c.Number, &c.Name, &c.DivisionID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// JudgeByID resolves a judge by id.
func (s *SQLStore) JudgeByID(ctx context.Context, id string) (model.Judge, error) {
	var j model.Judge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, division_id, access_code FROM judges WHERE id = $1`, id).
		Scan(&j.ID, &j.Name, &j.DivisionID, &j.AccessCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Judge{}, fmt.Errorf("judge %s: %w", id, ErrNotFound)
	}
	return j, err
}

// ContestantByID resolves a contestant by id.
func (s *SQLStore) ContestantByID(ctx context.Context, id string) (model.Contestant, error) {
	var c model.Contestant
	err := s.db.QueryRowContext(ctx,
		`SELECT id, number, name, division_id FROM contestants WHERE id = $1`, id).
		Scan(&c.ID, &c.Number, &c.Name, &c.DivisionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contestant{}, fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	return c, err
}

// JudgeByAccessCode resolves a judge by access code for login.
func (s *SQLStore) JudgeByAccessCode(ctx context.Context, code string) (model.Judge, error) {
	var j model.Judge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, division_id, access_code FROM judges WHERE access_code = $1`, code).
		Scan(&j.ID, &j.Name, &j.DivisionID, &j.AccessCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Judge{}, fmt.Errorf("access code: %w", ErrNotFound)
	}
	return j, err
}

// UpsertScores writes all rows or none inside one transaction. The lock
// check runs first; a concurrent CreateLock commits either before the
// transaction (batch rejected) or after it (rows written, then locked).
func (s *SQLStore) UpsertScores(ctx context.Context, rows []model.Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM locks WHERE judge_id = $1 AND category_id = $2 AND contestant_id = $3`,
			r.JudgeID, r.CategoryID, r.ContestantID).Scan(&one)
		switch {
		case err == nil:
			return fmt.Errorf("judge %s category %s contestant %s: %w", r.JudgeID, r.CategoryID, r.ContestantID, ErrLocked)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("lock check: %w", err)
		}

		var categoryID string
		err = tx.QueryRowContext(ctx,
			`SELECT category_id FROM criteria WHERE id = $1`, r.CriterionID).Scan(&categoryID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && categoryID != r.CategoryID) {
			return fmt.Errorf("criterion %s in category %s: %w", r.CriterionID, r.CategoryID, ErrUnknownCriterion)
		}
		if err != nil {
			return fmt.Errorf("criterion check: %w", err)
		}
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (judge_id, contestant_id, category_id, criterion_id, raw_score, weighted_score)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (judge_id, contestant_id, category_id, criterion_id)
			 DO UPDATE SET raw_score = EXCLUDED.raw_score, weighted_score = EXCLUDED.weighted_score`,
			r.JudgeID, r.ContestantID, r.CategoryID, r.CriterionID, r.RawScore, r.WeightedScore); err != nil {
			return fmt.Errorf("upsert score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// ListScores returns rows matching the filter.
func (s *SQLStore) ListScores(ctx context.Context, f ScoreFilter) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT judge_id, contestant_id, category_id, criterion_id, raw_score, weighted_score
		 FROM scores
		 WHERE ($1 = '' OR judge_id = $1)
		   AND ($2 = '' OR category_id = $2)
		   AND ($3 = '' OR contestant_id = $3)
		 ORDER BY judge_id, contestant_id, category_id, criterion_id`,
		f.JudgeID, f.CategoryID, f.ContestantID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var r model.Score
		if err := rows.Scan(&r.JudgeID, &r.ContestantID, &r.CategoryID, &r.CriterionID, &r.RawScore, &r.WeightedScore); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateLock marks the tuple immutable; the primary key makes re-locking a
// no-op instead of an error.
func (s *SQLStore) CreateLock(ctx context.Context, l model.Lock) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locks (judge_id, category_id, contestant_id) VALUES ($1, $2, $3)
		 ON CONFLICT (judge_id, category_id, contestant_id) DO NOTHING`,
		l.JudgeID, l.CategoryID, l.ContestantID)
	if err != nil {
		return fmt.Errorf("create lock: %w", err)
	}
	return nil
}

// RemoveLock reopens scoring for the tuple.
func (s *SQLStore) RemoveLock(ctx context.Context, l model.Lock) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM locks WHERE judge_id = $1 AND category_id = $2 AND contestant_id = $3`,
		l.JudgeID, l.CategoryID, l.ContestantID)
	if err != nil {
		return fmt.Errorf("remove lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s/%s/%s: %w", l.JudgeID, l.CategoryID, l.ContestantID, ErrNotFound)
	}
	return nil
}

// IsLocked reports whether the tuple carries a lock.
func (s *SQLStore) IsLocked(ctx context.Context, l model.Lock) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM locks WHERE judge_id = $1 AND category_id = $2 AND contestant_id = $3`,
		l.JudgeID, l.CategoryID, l.ContestantID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock lookup: %w", err)
	}
	return true, nil
}

// ListLocks returns locks matching the filter.
func (s *SQLStore) ListLocks(ctx context.Context, f LockFilter) ([]model.Lock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT judge_id, category_id, contestant_id FROM locks
		 WHERE ($1 = '' OR judge_id = $1) AND ($2 = '' OR category_id = $2)
		 ORDER BY judge_id, category_id, contestant_id`,
		f.JudgeID, f.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var out []model.Lock
	for rows.Next() {
		var l model.Lock
		if err := rows.Scan(&l.JudgeID, &l.CategoryID, &l.ContestantID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Counts returns store totals.
func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM divisions),
		   (SELECT COUNT(*) FROM categories),
		   (SELECT COUNT(*) FROM judges),
		   (SELECT COUNT(*) FROM contestants),
		   (SELECT COUNT(*) FROM scores),
		   (SELECT COUNT(*) FROM locks)`).
		Scan(&c.Divisions, &c.Categories, &c.Judges, &c.Contestants, &c.Scores, &c.Locks)
	if err != nil {
		return Counts{}, fmt.Errorf("counts: %w", err)
	}
	return c, nil
}
