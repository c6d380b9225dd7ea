package status

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/pvcharge/core/decisionlog"
)

// NewDecisionHandler returns an HTTP handler exposing the decision log via
// GET /api/decisions. Supported query parameters are start and end (RFC3339),
// kind and limit.
func NewDecisionHandler(store decisionlog.Store, token string) http.Handler {
	return requireToken(token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := decisionlog.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := r.URL.Query().Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		if k := r.URL.Query().Get("kind"); k != "" {
			kind, ok := kindFromString(k)
			if !ok {
				http.Error(w, "invalid kind", http.StatusBadRequest)
				return
			}
			q.Kind = kind
		}
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []decisionlog.Record{}
		}
		writeJSON(w, records)
	}))
}

func kindFromString(s string) (decisionlog.Kind, bool) {
	switch k := decisionlog.Kind(s); k {
	case decisionlog.KindTimer, decisionlog.KindTransition, decisionlog.KindSetpoint,
		decisionlog.KindEnabled, decisionlog.KindActuationError:
		return k, true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// requireToken rejects requests without "Authorization: Bearer <token>" when
// token is non-empty.
func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
