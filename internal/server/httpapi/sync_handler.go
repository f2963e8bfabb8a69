package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/logging"
)

// SyncAPI is the service surface the handlers call. Implemented by
// services.SyncService; stubbed in handler tests.
type SyncAPI interface {
	AcceptShiftStart(ctx context.Context, req *api.SyncShiftRequest) error
	AcceptLocation(ctx context.Context, req *api.SyncLocationRequest) error
	UploadURL(ctx context.Context, req *api.UploadURLRequest) (*api.UploadURLResponse, error)
	AcceptPhoto(ctx context.Context, req *api.SyncPhotoRequest) error
	AcceptNote(ctx context.Context, req *api.SyncNoteRequest) error
	AcceptShiftEnd(ctx context.Context, req *api.SyncShiftEndRequest) error
	ShiftState(ctx context.Context, code string) (*api.ShiftStateResponse, error)
}

// SyncHandler translates HTTP requests into service calls and service
// errors back into status codes. Unknown and expired pair codes are both
// 404; malformed codes are 400; everything else is 500.
type SyncHandler struct {
	service SyncAPI
	logger  logging.Logger
}

func NewSyncHandler(service SyncAPI, logger logging.Logger) *SyncHandler {
	return &SyncHandler{service: service, logger: logger.With("component", "sync_handler")}
}

func (h *SyncHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrPairCodeExpired):
		writeError(w, http.StatusNotFound, "shift not found")
	case errors.Is(err, common.ErrInvalidPairCode):
		writeError(w, http.StatusBadRequest, "invalid pair code")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *SyncHandler) SyncShift(w http.ResponseWriter, r *http.Request) {
	var req api.SyncShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AcceptShiftStart(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SyncHandler) SyncLocation(w http.ResponseWriter, r *http.Request) {
	var req api.SyncLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AcceptLocation(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SyncHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req api.UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.service.UploadURL(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SyncHandler) SyncPhotoMetadata(w http.ResponseWriter, r *http.Request) {
	var req api.SyncPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AcceptPhoto(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SyncHandler) SyncNote(w http.ResponseWriter, r *http.Request) {
	var req api.SyncNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AcceptNote(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SyncHandler) SyncShiftEnd(w http.ResponseWriter, r *http.Request) {
	var req api.SyncShiftEndRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.AcceptShiftEnd(r.Context(), &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SyncHandler) ShiftState(w http.ResponseWriter, r *http.Request, code string) {
	resp, err := h.service.ShiftState(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
