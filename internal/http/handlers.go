package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "expenses/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the ledger can be read
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentLedger).WarnContext(r.Context(),
			"Readiness check failed", applog.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"ledger": "failed: " + err.Error()},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    map[string]string{"ledger": "ok"},
	})
}

// render executes a page template, answering 500 when it fails.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
	}
}

// fail logs err and answers with the status it maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	fields := applog.NewFields()
	switch status {
	case http.StatusNotFound:
		fields = fields.WithErrorType(applog.ErrorTypeNotFound)
	case http.StatusBadRequest:
		fields = fields.WithErrorType(applog.ErrorTypeValidation)
	default:
		fields = fields.WithErrorType(applog.ErrorTypeStorage)
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
		"Expense request failed", err, applog.ComponentExpense, op, fields)

	if status == http.StatusInternalServerError {
		http.Error(w, "The ledger could not be read or written.", status)
		return
	}
	http.Error(w, err.Error(), status)
}
