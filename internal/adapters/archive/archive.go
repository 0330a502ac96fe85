// Package archive persists aggregate snapshots to a local SQLite database,
// one batch per pipeline run, so past constellation states can be queried
// after the in-memory engine has moved on.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aerodrift/constellation/internal/domain/model"
	"github.com/aerodrift/constellation/pkg/logger"
	"github.com/aerodrift/constellation/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	run_id      TEXT    NOT NULL,
	stored_at   INTEGER NOT NULL,
	id          TEXT    NOT NULL,
	time_iso    TEXT    NOT NULL,
	time_unix   INTEGER NOT NULL,
	lat         REAL    NOT NULL,
	lon         REAL    NOT NULL,
	alt_m       REAL,
	source_hour INTEGER NOT NULL,
	raw_index   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_run  ON records (run_id);
CREATE INDEX IF NOT EXISTS idx_records_time ON records (time_unix);
`

// Store wraps the SQLite handle. A nil *Store is a valid no-op archive, so
// callers do not branch on whether archiving is configured.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (creating if necessary) the archive database at path and
// ensures the schema. An empty path disables archiving and returns nil.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	s := &Store{db: db, logger: logger.Get().Named("archive")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// StoreRun inserts one run's aggregate set in a single transaction.
func (s *Store) StoreRun(ctx context.Context, runID string, records []model.Record) error {
	if s == nil || len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(run_id, stored_at, id, time_iso, time_unix, lat, lon, alt_m, source_hour, raw_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	storedAt := time.Now().Unix()
	for _, r := range records {
		var alt any
		if r.AltM != nil {
			alt = *r.AltM
		}
		if _, err := stmt.ExecContext(ctx, runID, storedAt, r.ID, r.TimeISO,
			r.Time.Unix(), r.Lat, r.Lon, alt, r.SourceHour, r.RawIndex); err != nil {
			metrics.RecordArchiveError()
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("commit archive tx: %w", err)
	}
	metrics.RecordArchiveInserts(len(records))
	s.logger.Debug(ctx, "archived run", logger.String("run_id", runID), logger.Int("records", len(records)))
	return nil
}

// QueryRange returns archived records whose observation time falls inside
// [from, to], most recent first.
func (s *Store) QueryRange(ctx context.Context, from, to time.Time) ([]model.Record, error) {
	if s == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, time_iso, time_unix, lat, lon, alt_m, source_hour, raw_index
		FROM records WHERE time_unix >= ? AND time_unix <= ? ORDER BY time_unix DESC`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r        model.Record
			timeUnix int64
			alt      sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.TimeISO, &timeUnix, &r.Lat, &r.Lon, &alt, &r.SourceHour, &r.RawIndex); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		if alt.Valid {
			v := alt.Float64
			r.AltM = &v
		}
		r.Time = time.Unix(timeUnix, 0).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return out, nil
}

// RunCount returns the number of distinct archived runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT run_id) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archive runs: %w", err)
	}
	return n, nil
}
