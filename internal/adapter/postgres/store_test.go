package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestAppendWritesRow(t *testing.T) {
	store, mock := newMockStore(t)

	postID := "post-42"
	created := time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC)
	start := created.Add(40 * time.Minute)
	end := created.Add(60 * time.Minute)

	mock.ExpectExec("INSERT INTO decision_log").
		WithArgs("nbhd-kukatpally", "now", "heavy", "in 40–60 min",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "abc123",
			sqlmock.AnyArg(), "posted", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Append(context.Background(), governor.LogEntry{
		AreaID:      "nbhd-kukatpally",
		Scope:       domain.ScopeNow,
		Bucket:      domain.BucketHeavy,
		WindowLabel: "in 40–60 min",
		WindowStart: &start,
		WindowEnd:   &end,
		Hash:        "abc123",
		PostID:      &postID,
		Result:      governor.ResultPosted,
		CreatedAt:   created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMostRecentReturnsEntry(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"area_id", "scope", "bucket", "window_label",
		"window_start", "window_end", "hash", "post_id", "result", "created_at",
	}).AddRow("dist-warangal", "today", "moderate", "1 pm – 4 pm",
		nil, nil, "abc123", "post-7", "posted", created)

	mock.ExpectQuery("SELECT (.+) FROM decision_log").
		WithArgs("dist-warangal").
		WillReturnRows(rows)

	e, err := store.MostRecent(context.Background(), "dist-warangal")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, domain.ScopeToday, e.Scope)
	assert.Equal(t, domain.BucketModerate, e.Bucket)
	require.NotNil(t, e.PostID)
	assert.Equal(t, "post-7", *e.PostID)
	assert.Nil(t, e.WindowStart)
	assert.Equal(t, created, e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMostRecentNoHistory(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM decision_log").
		WithArgs("dist-adilabad").
		WillReturnRows(sqlmock.NewRows([]string{"area_id"}))

	e, err := store.MostRecent(context.Background(), "dist-adilabad")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSince(t *testing.T) {
	store, mock := newMockStore(t)

	since := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveObservation(t *testing.T) {
	store, mock := newMockStore(t)

	precip := 3.5
	mock.ExpectExec("INSERT INTO observations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.SaveObservation(context.Background(), domain.Observation{
		AreaID:         "dist-warangal",
		ObservedAt:     time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC),
		PrecipHour:     &precip,
		RadarIntensity: domain.RadarModerate,
		StaleSources:   []string{"OpenMeteo"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAlert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO alerts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.SaveAlert(context.Background(), domain.Alert{
		AreaID:     "nbhd-ameerpet",
		Scope:      domain.ScopeNow,
		IssuedAt:   time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC),
		Severity:   domain.SeverityHigh,
		Confidence: 0.85,
		Sources:    []domain.Source{domain.SourceRadar},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
