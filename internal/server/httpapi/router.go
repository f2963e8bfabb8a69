// Package httpapi exposes the sync API over plain net/http. The route
// surface is small enough that the standard ServeMux does the job without a
// third-party router.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/fieldops/shiftsync/internal/logging"
)

// Router wraps http.ServeMux with method dispatch and request logging.
type Router struct {
	mux    *http.ServeMux
	logger logging.Logger
}

func NewRouter(logger logging.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger.With("component", "httpapi"),
	}
}

func (r *Router) handle(method, pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSyncRoutes wires the sync endpoints onto the router.
func (r *Router) RegisterSyncRoutes(h *SyncHandler) {
	r.handle(http.MethodPost, "/api/sync/shift", h.SyncShift)
	r.handle(http.MethodPost, "/api/sync/location", h.SyncLocation)
	r.handle(http.MethodPost, "/api/upload-url", h.UploadURL)
	r.handle(http.MethodPost, "/api/sync/photo-metadata", h.SyncPhotoMetadata)
	r.handle(http.MethodPost, "/api/sync/note", h.SyncNote)
	r.handle(http.MethodPost, "/api/sync/shift-end", h.SyncShiftEnd)

	// viewer read: /api/sync/shift/{pairCode}
	r.mux.HandleFunc("/api/sync/shift/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		code := strings.TrimPrefix(req.URL.Path, "/api/sync/shift/")
		if code == "" || strings.Contains(code, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ShiftState(w, req, code)
	})
}
