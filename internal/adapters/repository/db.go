package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:tiara.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/tiara?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", drvName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", drvName, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// schema is shared between sqlite and postgres; both understand this
// dialect subset, and both enforce the natural-key constraints the engine
// relies on (at most one lock per tuple, one score row per full key).
const schema = `
CREATE TABLE IF NOT EXISTS divisions (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  ord INTEGER NOT NULL DEFAULT 0,
  weight REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS criteria (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  percentage REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS judges (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  division_id TEXT NOT NULL REFERENCES divisions(id),
  access_code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS contestants (
  id TEXT PRIMARY KEY,
  number INTEGER NOT NULL,
  name TEXT NOT NULL,
  division_id TEXT NOT NULL REFERENCES divisions(id),
  UNIQUE (division_id, number)
);

CREATE TABLE IF NOT EXISTS scores (
  judge_id TEXT NOT NULL,
  contestant_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  criterion_id TEXT NOT NULL,
  raw_score REAL NOT NULL,
  weighted_score REAL NOT NULL,
  PRIMARY KEY (judge_id, contestant_id, category_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS locks (
  judge_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  contestant_id TEXT NOT NULL,
  PRIMARY KEY (judge_id, category_id, contestant_id)
);
`
