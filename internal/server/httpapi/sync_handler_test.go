package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSync returns canned results and records the last request it saw.
type stubSync struct {
	err       error
	state     *api.ShiftStateResponse
	uploadURL *api.UploadURLResponse

	lastShift *api.SyncShiftRequest
	lastCode  string
}

func (s *stubSync) AcceptShiftStart(_ context.Context, req *api.SyncShiftRequest) error {
	s.lastShift = req
	return s.err
}
func (s *stubSync) AcceptLocation(_ context.Context, _ *api.SyncLocationRequest) error {
	return s.err
}
func (s *stubSync) UploadURL(_ context.Context, _ *api.UploadURLRequest) (*api.UploadURLResponse, error) {
	return s.uploadURL, s.err
}
func (s *stubSync) AcceptPhoto(_ context.Context, _ *api.SyncPhotoRequest) error { return s.err }
func (s *stubSync) AcceptNote(_ context.Context, _ *api.SyncNoteRequest) error   { return s.err }
func (s *stubSync) AcceptShiftEnd(_ context.Context, _ *api.SyncShiftEndRequest) error {
	return s.err
}
func (s *stubSync) ShiftState(_ context.Context, code string) (*api.ShiftStateResponse, error) {
	s.lastCode = code
	return s.state, s.err
}

func newTestRouter(stub *stubSync) *Router {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := NewRouter(logger)
	r.RegisterSyncRoutes(NewSyncHandler(stub, logger))
	return r
}

func doRequest(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSyncShift_Accepted(t *testing.T) {
	stub := &stubSync{}
	r := newTestRouter(stub)

	w := doRequest(t, r, http.MethodPost, "/api/sync/shift",
		`{"eventId":"e1","pairCode":"AB123D","shiftId":"s1","staffName":"Dana Reyes"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.lastShift)
	assert.Equal(t, "e1", stub.lastShift.EventID)
	assert.Equal(t, "AB123D", stub.lastShift.PairCode)
}

func TestSyncShift_MalformedBody(t *testing.T) {
	stub := &stubSync{}
	r := newTestRouter(stub)

	w := doRequest(t, r, http.MethodPost, "/api/sync/shift", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, stub.lastShift, "a malformed body must not reach the service")
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown pair code", common.ErrNotFound, http.StatusNotFound},
		{"expired pair code", common.ErrPairCodeExpired, http.StatusNotFound},
		{"malformed pair code", common.ErrInvalidPairCode, http.StatusBadRequest},
		{"storage failure", errors.New("db error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubSync{err: tt.err})
			w := doRequest(t, r, http.MethodPost, "/api/sync/note",
				`{"eventId":"e1","pairCode":"AB123D","noteId":"n1","text":"x"}`)
			assert.Equal(t, tt.want, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := newTestRouter(&stubSync{})

	w := doRequest(t, r, http.MethodGet, "/api/sync/shift", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/sync/shift/AB123D", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUploadURL_ReturnsSignedTarget(t *testing.T) {
	stub := &stubSync{uploadURL: &api.UploadURLResponse{
		Key: "photos/2026/8/30/AB123D/p1",
		URL: "https://bucket.example/put",
	}}
	r := newTestRouter(stub)

	w := doRequest(t, r, http.MethodPost, "/api/upload-url",
		`{"pairCode":"AB123D","photoId":"p1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.UploadURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, *stub.uploadURL, resp)
}

func TestShiftState_ExtractsPairCodeFromPath(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	stub := &stubSync{state: &api.ShiftStateResponse{
		ShiftID:   "s1",
		PairCode:  "AB123D",
		StaffName: "Dana Reyes",
		StartTime: now,
		Active:    true,
		Locations: []api.LocationFix{},
		Photos:    []api.PhotoState{},
		Notes:     []api.NoteState{},
	}}
	r := newTestRouter(stub)

	w := doRequest(t, r, http.MethodGet, "/api/sync/shift/AB123D", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AB123D", stub.lastCode)

	var resp api.ShiftStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.ShiftID)
	assert.True(t, resp.Active)
}

func TestShiftState_BadPaths(t *testing.T) {
	stub := &stubSync{}
	r := newTestRouter(stub)

	w := doRequest(t, r, http.MethodGet, "/api/sync/shift/AB123D/extra", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, stub.lastCode, "nested paths must not reach the service")
}
