// Package status serves the controller's read-only status, its decision log
// and the intelligent charging switch over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kilianp07/pvcharge/core/control"
)

// Source provides the values reported by GET /api/status.
type Source interface {
	Status() control.Status
	Efficiency() float64
	Dropped() uint64
}

// Enabler forwards a switch request to the goroutine owning the controller.
type Enabler interface {
	RequestEnabled(ctx context.Context, enabled bool) error
}

// Response is the body of GET /api/status.
type Response struct {
	control.Status
	Efficiency     float64 `json:"efficiency"`
	DroppedSamples uint64  `json:"dropped_samples"`
}

// NewStatusHandler returns the GET /api/status handler.
func NewStatusHandler(src Source, token string) http.Handler {
	return requireToken(token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, Response{Status: src.Status(), Efficiency: src.Efficiency(), DroppedSamples: src.Dropped()})
	}))
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// NewEnabledHandler returns the POST /api/enabled handler. The body is
// {"enabled": bool}.
func NewEnabledHandler(en Enabler, token string) http.Handler {
	return requireToken(token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req enabledRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, `body must be {"enabled": bool}`, http.StatusBadRequest)
			return
		}
		if err := en.RequestEnabled(r.Context(), *req.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]bool{"enabled": *req.Enabled})
	}))
}
