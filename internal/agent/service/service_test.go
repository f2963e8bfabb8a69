package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldops/shiftsync/internal/agent/dispatch"
	"github.com/fieldops/shiftsync/internal/agent/models"
	"github.com/fieldops/shiftsync/internal/agent/outbox"
	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/logging"
	"github.com/fieldops/shiftsync/internal/paircode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE active_shift (
  slot INTEGER PRIMARY KEY CHECK (slot = 1),
  doc BLOB NOT NULL
);
CREATE TABLE shift_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  shift_id TEXT NOT NULL UNIQUE,
  doc BLOB NOT NULL,
  ended_at TEXT NOT NULL
);
CREATE TABLE sync_queue (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  payload BLOB NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  last_attempt_at TEXT
);
`)
	require.NoError(t, err)
	return db
}

func queuedItems(t *testing.T, db *sql.DB) []models.SyncItem {
	t.Helper()
	items, err := outbox.NewSQLiteQueue(db).List(context.Background())
	require.NoError(t, err)
	return items
}

func TestStartShift_PersistsAndEnqueues(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)
	ctx := context.Background()

	shift, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)
	require.NotNil(t, shift)
	assert.NotEmpty(t, shift.ID)
	assert.True(t, shift.Active)
	normalized, err := paircode.Validate(shift.PairCode)
	require.NoError(t, err)
	assert.Equal(t, shift.PairCode, normalized)

	active, err := svc.ActiveShift(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, shift.ID, active.ID)

	items := queuedItems(t, db)
	require.Len(t, items, 1)
	assert.Equal(t, models.SyncKindShiftStart, items[0].Kind)

	var req api.SyncShiftRequest
	require.NoError(t, json.Unmarshal(items[0].Payload, &req))
	assert.Equal(t, items[0].ID, req.EventID)
	assert.Equal(t, shift.PairCode, req.PairCode)
	assert.Equal(t, "Dana Reyes", req.StaffName)
}

func TestStartShift_SecondStartIsRejected(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)
	ctx := context.Background()

	_, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)

	_, err = svc.StartShift(ctx, "Sam Okafor", "Harbor Gate 3", nil)
	assert.ErrorIs(t, err, common.ErrShiftAlreadyActive)

	// the failed attempt must leave no trace in the queue
	assert.Len(t, queuedItems(t, db), 1)
}

func TestAddLocation_NoActiveShiftIsNotAnError(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)

	shift, err := svc.AddLocation(context.Background(), models.LocationPoint{
		Latitude: 51.5, Longitude: -0.1, CapturedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Nil(t, shift)
	assert.Empty(t, queuedItems(t, db))
}

func TestAddLocation_RejectsDecreasingTimestamps(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)
	ctx := context.Background()

	_, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)

	t1 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	_, err = svc.AddLocation(ctx, models.LocationPoint{Latitude: 1, CapturedAt: t1})
	require.NoError(t, err)

	_, err = svc.AddLocation(ctx, models.LocationPoint{Latitude: 2, CapturedAt: t1.Add(-time.Minute)})
	require.Error(t, err)

	// the rejected point must not reach the document or the queue
	active, err := svc.ActiveShift(ctx)
	require.NoError(t, err)
	assert.Len(t, active.Locations, 1)
	assert.Len(t, queuedItems(t, db), 2) // shift-start + one location
}

func TestEndShift_ArchivesAndClears(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)
	ctx := context.Background()

	started, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)

	ended, err := svc.EndShift(ctx)
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.Equal(t, started.ID, ended.ID)
	assert.False(t, ended.Active)
	require.NotNil(t, ended.EndedAt)

	active, err := svc.ActiveShift(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, started.ID, history[0].ID)
}

func TestEndShift_NoActiveShiftIsNotAnError(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)

	ended, err := svc.EndShift(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ended)
}

func TestRequeueFailed_NotifiesDispatcher(t *testing.T) {
	db := setupDB(t)
	notified := 0
	svc := NewShiftService(db, testLogger(), func() { notified++ })
	ctx := context.Background()

	// nothing failed yet: no notification
	n, err := svc.RequeueFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, notified)

	q := outbox.NewSQLiteQueue(db)
	require.NoError(t, q.Enqueue(ctx, &models.SyncItem{
		ID: "dead", Kind: models.SyncKindNote, Payload: []byte(`{}`), CreatedAt: time.Now().UTC(),
	}))
	for i := 0; i < common.RetryCeiling; i++ {
		require.NoError(t, q.RecordAttempt(ctx, "dead"))
	}

	n, err = svc.RequeueFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, notified)

	stats, err := svc.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStats{Total: 1, Pending: 1, Failed: 0}, stats)
}

func TestAddNote_AppendsAndEnqueues(t *testing.T) {
	db := setupDB(t)
	svc := NewShiftService(db, testLogger(), nil)
	ctx := context.Background()

	_, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)

	shift, err := svc.AddNote(ctx, models.Note{Text: "gate locked", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Len(t, shift.Notes, 1)
	assert.NotEmpty(t, shift.Notes[0].ID)

	items := queuedItems(t, db)
	require.Len(t, items, 2)
	assert.Equal(t, models.SyncKindNote, items[1].Kind)

	var req api.SyncNoteRequest
	require.NoError(t, json.Unmarshal(items[1].Payload, &req))
	assert.Equal(t, items[1].ID, req.EventID)
	assert.Equal(t, "gate locked", req.Text)
}

// TestShiftLifecycle_EndToEnd runs a whole shift against a recording server:
// start, two location fixes, one photo, end. Afterwards one drain pass must
// empty the queue and the server must have seen exactly one call per queued
// event.
func TestShiftLifecycle_EndToEnd(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	var baseURL string
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut:
			// the presigned upload target
			_, _ = io.Copy(io.Discard, r.Body)
		case r.URL.Path == "/api/upload-url":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(api.UploadURLResponse{Key: "k", URL: baseURL + "/presigned-put"})
		default:
			paths = append(paths, r.URL.Path)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()
	baseURL = srv.URL

	d := dispatch.New(outbox.NewSQLiteQueue(db), srv.URL, testLogger())
	svc := NewShiftService(db, testLogger(), d.Nudge)

	photoFile := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(photoFile, []byte("jpeg-bytes"), 0o600))

	_, err := svc.StartShift(ctx, "Dana Reyes", "Harbor Gate 3", nil)
	require.NoError(t, err)

	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	_, err = svc.AddLocation(ctx, models.LocationPoint{Latitude: 1, CapturedAt: base})
	require.NoError(t, err)
	_, err = svc.AddLocation(ctx, models.LocationPoint{Latitude: 2, CapturedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = svc.AddPhoto(ctx, models.Photo{LocalURI: photoFile, CapturedAt: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	_, err = svc.EndShift(ctx)
	require.NoError(t, err)

	stats, err := svc.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)

	assert.Equal(t, 5, d.Drain(ctx))

	stats, err = svc.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	assert.Equal(t, []string{
		"/api/sync/shift",
		"/api/sync/location",
		"/api/sync/location",
		"/api/sync/photo-metadata",
		"/api/sync/shift-end",
	}, paths)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	archived := history[0]
	assert.False(t, archived.Active)
	require.NotNil(t, archived.EndedAt)
	assert.Len(t, archived.Locations, 2)
	assert.Len(t, archived.Photos, 1)
}
