package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftState_NormalizesCodeBeforeRequest(t *testing.T) {
	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ShiftStateResponse{
			ShiftID:  "s1",
			PairCode: "AB123D",
			Active:   true,
		})
	}))
	defer srv.Close()

	state, err := NewClient(srv.URL).ShiftState(context.Background(), "ab-12-3d")
	require.NoError(t, err)
	assert.Equal(t, "/api/sync/shift/AB123D", requestedPath)
	assert.Equal(t, "s1", state.ShiftID)
	assert.True(t, state.Active)
}

func TestShiftState_MalformedCodeNeverHitsTheNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a malformed code")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ShiftState(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrInvalidPairCode)
}

func TestShiftState_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"shift not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ShiftState(context.Background(), "AB123D")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestShiftState_ServerErrorIsReturnedToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ShiftState(context.Background(), "AB123D")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestShiftState_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	srv.Close() // connection refused from here on

	_, err := NewClient(srv.URL).ShiftState(context.Background(), "AB123D")
	require.Error(t, err)
}
