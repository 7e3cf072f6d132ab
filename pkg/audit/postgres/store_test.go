package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/trip-planner/pkg/audit"
)

const (
	testYear        = 2026
	testMonth       = 10
	testDurationMS  = 42
	testItineraries = 12
	testFilterLimit = 10
	testCountResult = 42
	testToken       = "0b8f0a9e-6d0c-4b55-9b0e-3f3f0e7f9f10"
	insertPattern   = "INSERT INTO search_audit_logs"
	selectPattern   = "SELECT .+ FROM search_audit_logs"
)

// selectColumns lists the SELECT column names in scan order.
var selectColumns = []string{
	"id", "timestamp", "duration_ms", "session_token", "operation",
	"provider", "origin", "destination", "status", "action",
	"itineraries", "upstream_called", "success", "error_message",
	"source", "parameters",
}

func newTestEvent() audit.Event {
	return audit.Event{
		ID:             "evt-123",
		Timestamp:      time.Date(testYear, testMonth, 15, 10, 30, 0, 0, time.UTC),
		DurationMS:     testDurationMS,
		SessionToken:   testToken,
		Operation:      audit.OperationPoll,
		Provider:       "livequote",
		Origin:         "JFK",
		Destination:    "LAX",
		Status:         "complete",
		Action:         "replace",
		Itineraries:    testItineraries,
		UpstreamCalled: true,
		Success:        true,
		Source:         "http",
		Parameters:     map[string]any{"adults": float64(2)},
	}
}

func addEventRow(rows *sqlmock.Rows, event audit.Event) {
	paramsJSON, _ := json.Marshal(event.Parameters)
	rows.AddRow(
		event.ID, event.Timestamp, event.DurationMS, event.SessionToken, string(event.Operation),
		event.Provider, event.Origin, event.Destination, event.Status, event.Action,
		event.Itineraries, event.UpstreamCalled, event.Success, event.ErrorMessage,
		event.Source, paramsJSON,
	)
}

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("custom retention", func(t *testing.T) {
		store := New(db, Config{RetentionDays: 30})
		assert.Equal(t, 30, store.retentionDays)
		assert.Equal(t, db, store.db)
	})

	t.Run("default retention when zero", func(t *testing.T) {
		store := New(db, Config{RetentionDays: 0})
		assert.Equal(t, defaultRetentionDays, store.retentionDays)
	})
}

func TestLog_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	event := newTestEvent()

	paramsJSON, err := json.Marshal(event.Parameters)
	require.NoError(t, err)

	mock.ExpectExec(insertPattern).WithArgs(
		event.ID,
		event.Timestamp,
		event.DurationMS,
		event.SessionToken,
		string(event.Operation),
		event.Provider,
		event.Origin,
		event.Destination,
		event.Status,
		event.Action,
		event.Itineraries,
		event.UpstreamCalled,
		event.Success,
		event.ErrorMessage,
		event.Source,
		paramsJSON,
		"2026-10-15",
	).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_NilParametersStoredAsEmptyObject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	event := newTestEvent()
	event.Parameters = nil

	mock.ExpectExec(insertPattern).WithArgs(
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		[]byte("{}"),
		sqlmock.AnyArg(),
	).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})

	mock.ExpectExec(insertPattern).WillReturnError(errors.New("connection refused"))

	err = store.Log(context.Background(), newTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting audit log")
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_NoFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	event := newTestEvent()
	rows := sqlmock.NewRows(selectColumns)
	addEventRow(rows, event)
	mock.ExpectQuery(selectPattern + " ORDER BY timestamp DESC").WillReturnRows(rows)

	results, err := store.Query(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.SessionToken, got.SessionToken)
	assert.Equal(t, audit.OperationPoll, got.Operation)
	assert.Equal(t, event.Origin, got.Origin)
	assert.Equal(t, event.Itineraries, got.Itineraries)
	assert.True(t, got.UpstreamCalled)
	assert.Equal(t, event.Parameters, got.Parameters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})

	startTime := time.Date(testYear, testMonth, 1, 0, 0, 0, 0, time.UTC)
	success := false
	filter := audit.QueryFilter{
		StartTime:    &startTime,
		SessionToken: testToken,
		Operation:    audit.OperationCreate,
		Origin:       "JFK",
		Destination:  "LAX",
		Status:       "error",
		Success:      &success,
	}

	mock.ExpectQuery(selectPattern+" WHERE").WithArgs(
		startTime, testToken, "create", "JFK", "LAX", "error", false,
	).WillReturnRows(sqlmock.NewRows(selectColumns))

	results, err := store.Query(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Paging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery(selectPattern + ".+LIMIT.+OFFSET").WillReturnRows(sqlmock.NewRows(selectColumns))

	_, err = store.Query(context.Background(), audit.QueryFilter{Limit: testFilterLimit, Offset: testFilterLimit})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery(selectPattern).WillReturnError(errors.New("boom"))

	_, err = store.Query(context.Background(), audit.QueryFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying audit logs")
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM search_audit_logs WHERE origin = \$1`).
		WithArgs("JFK").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCountResult))

	count, err := store.Count(context.Background(), audit.QueryFilter{Origin: "JFK"})
	require.NoError(t, err)
	assert.Equal(t, testCountResult, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "failures", "sessions", "upstream", "avg"}).
			AddRow(10, 2, 4, 8, 120.5))
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM search_audit_logs GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("complete", 7).
			AddRow("error", 2).
			AddRow("pending", 1))

	stats, err := store.Stats(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 2, stats.Failures)
	assert.Equal(t, 4, stats.Sessions)
	assert.Equal(t, 8, stats.UpstreamCalls)
	assert.InDelta(t, 120.5, stats.AvgDurationMS, 0.001)
	assert.Equal(t, map[string]int{"complete": 7, "error": 2, "pending": 1}, stats.ByStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{RetentionDays: 7})
	mock.ExpectExec("DELETE FROM search_audit_logs WHERE timestamp").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartCleanupRoutine_Close(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	store.StartCleanupRoutine(time.Hour)
	require.NoError(t, store.Close())

	// Close without a routine is a no-op.
	require.NoError(t, New(db, Config{}).Close())
}
