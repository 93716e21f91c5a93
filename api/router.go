// Package api exposes the scheduling orchestrator over HTTP: bearer auth,
// per-owner request serialization and the JSON request/response contract.
// No router library is pulled in — handlers are bare net/http.
package api

import (
	"net/http"

	"github.com/kilianp07/diaguru/core/logger"
	"github.com/kilianp07/diaguru/core/scheduler"
)

// NewRouter registers POST /schedule-capture on a fresh ServeMux, wrapped in
// bearer auth and per-owner serialization.
func NewRouter(orch *scheduler.Orchestrator, authenticator Authenticator, log logger.Logger) http.Handler {
	if log == nil {
		log = nopLogger{}
	}
	h := &scheduleHandler{orch: orch, locks: NewCaptureLock(), log: log}

	mux := http.NewServeMux()
	mux.Handle("POST /schedule-capture", h)
	return RequireBearer(authenticator, mux)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
