package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/pvcharge/core/decisionlog"
	"github.com/kilianp07/pvcharge/core/logger"
)

// Config defines the status API listener.
type Config struct {
	// Addr is the listen address. Empty disables the API.
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// NewMux wires the status API routes.
func NewMux(src Source, en Enabler, store decisionlog.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/status", NewStatusHandler(src, token))
	mux.Handle("/api/enabled", NewEnabledHandler(en, token))
	mux.Handle("/api/decisions", NewDecisionHandler(store, token))
	return mux
}

// Serve runs an HTTP server with h until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("status api shutdown: %v", err)
		}
	}()
	log.Infof("status api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
