// Package postgres persists the durable decision state: the append-only
// decision log that cooldown and rate accounting read, plus the observation
// and alert history.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
)

const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id           BIGSERIAL PRIMARY KEY,
	area_id      TEXT NOT NULL,
	scope        TEXT NOT NULL,
	bucket       TEXT NOT NULL,
	window_label TEXT NOT NULL,
	window_start TIMESTAMPTZ,
	window_end   TIMESTAMPTZ,
	hash         TEXT NOT NULL,
	post_id      TEXT,
	result       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS decision_log_area_created_idx ON decision_log (area_id, created_at DESC);
CREATE INDEX IF NOT EXISTS decision_log_created_idx ON decision_log (created_at);

CREATE TABLE IF NOT EXISTS observations (
	id              BIGSERIAL PRIMARY KEY,
	area_id         TEXT NOT NULL,
	observed_at     TIMESTAMPTZ NOT NULL,
	precip_hour     DOUBLE PRECISION,
	probability     DOUBLE PRECISION,
	radar_eta_min   INTEGER,
	radar_duration  INTEGER,
	radar_intensity TEXT NOT NULL,
	now_prob        DOUBLE PRECISION,
	max_prob_12h    DOUBLE PRECISION,
	sum_precip_12h  DOUBLE PRECISION,
	peak_hour_local TIMESTAMPTZ,
	stale_sources   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS observations_area_observed_idx ON observations (area_id, observed_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
	id           BIGSERIAL PRIMARY KEY,
	area_id      TEXT NOT NULL,
	scope        TEXT NOT NULL,
	issued_at    TIMESTAMPTZ NOT NULL,
	window_start TIMESTAMPTZ,
	window_end   TIMESTAMPTZ,
	severity     TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	text_en      TEXT NOT NULL DEFAULT '',
	text_te      TEXT NOT NULL DEFAULT '',
	sources      TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS alerts_area_issued_idx ON alerts (area_id, issued_at DESC);
`

// Store implements the decision log and snapshot persistence on Postgres.
type Store struct {
	db *sqlx.DB
}

// Connect opens and pings a Postgres connection.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle, for tests.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type logRow struct {
	AreaID      string         `db:"area_id"`
	Scope       string         `db:"scope"`
	Bucket      string         `db:"bucket"`
	WindowLabel string         `db:"window_label"`
	WindowStart sql.NullTime   `db:"window_start"`
	WindowEnd   sql.NullTime   `db:"window_end"`
	Hash        string         `db:"hash"`
	PostID      sql.NullString `db:"post_id"`
	Result      string         `db:"result"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r logRow) entry() governor.LogEntry {
	e := governor.LogEntry{
		AreaID:      r.AreaID,
		Scope:       domain.Scope(r.Scope),
		Bucket:      domain.Bucket(r.Bucket),
		WindowLabel: r.WindowLabel,
		Hash:        r.Hash,
		Result:      governor.PostResult(r.Result),
		CreatedAt:   r.CreatedAt,
	}
	if r.WindowStart.Valid {
		t := r.WindowStart.Time
		e.WindowStart = &t
	}
	if r.WindowEnd.Valid {
		t := r.WindowEnd.Time
		e.WindowEnd = &t
	}
	if r.PostID.Valid {
		id := r.PostID.String
		e.PostID = &id
	}
	return e
}

// Append writes one decision log entry.
func (s *Store) Append(ctx context.Context, e governor.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_log
			(area_id, scope, bucket, window_label, window_start, window_end, hash, post_id, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.AreaID, string(e.Scope), string(e.Bucket), e.WindowLabel,
		nullTime(e.WindowStart), nullTime(e.WindowEnd), e.Hash,
		nullString(e.PostID), string(e.Result), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append decision log: %w", err)
	}
	return nil
}

// MostRecent returns the latest log entry for an area, or nil when the area
// has never been logged.
func (s *Store) MostRecent(ctx context.Context, areaID string) (*governor.LogEntry, error) {
	var row logRow
	err := s.db.GetContext(ctx, &row, `
		SELECT area_id, scope, bucket, window_label, window_start, window_end, hash, post_id, result, created_at
		FROM decision_log
		WHERE area_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, areaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query most recent for %s: %w", areaID, err)
	}
	e := row.entry()
	return &e, nil
}

// CountSince returns the number of log entries created at or after since.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM decision_log WHERE created_at >= $1`, since)
	if err != nil {
		return 0, fmt.Errorf("count decision log: %w", err)
	}
	return n, nil
}

// SaveObservation appends one per-cycle numeric snapshot.
func (s *Store) SaveObservation(ctx context.Context, o domain.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations
			(area_id, observed_at, precip_hour, probability, radar_eta_min, radar_duration,
			 radar_intensity, now_prob, max_prob_12h, sum_precip_12h, peak_hour_local, stale_sources)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.AreaID, o.ObservedAt, o.PrecipHour, o.Probability, o.RadarEtaMin, o.RadarDuration,
		string(o.RadarIntensity), o.NowProb, o.MaxProb12h, o.SumPrecip12h, o.PeakHourLocal,
		pq.Array(o.StaleSources))
	if err != nil {
		return fmt.Errorf("save observation for %s: %w", o.AreaID, err)
	}
	return nil
}

// SaveAlert appends one classified alert.
func (s *Store) SaveAlert(ctx context.Context, a domain.Alert) error {
	sources := make([]string, 0, len(a.Sources))
	for _, src := range a.Sources {
		sources = append(sources, string(src))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts
			(area_id, scope, issued_at, window_start, window_end, severity, confidence, text_en, text_te, sources)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.AreaID, string(a.Scope), a.IssuedAt, nullIfZero(a.WindowStart), nullIfZero(a.WindowEnd),
		string(a.Severity), a.Confidence, a.TextEn, a.TextTe, pq.Array(sources))
	if err != nil {
		return fmt.Errorf("save alert for %s: %w", a.AreaID, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullIfZero(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
