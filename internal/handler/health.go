// Package handler contains the HTTP handlers for the Cashflow API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query, JSON body)
//  2. Call the service that owns the business rule
//  3. Write the response in the standard envelope (see response.go)
//
// Handlers contain no business logic. Each handler depends on a small
// interface naming exactly the service methods it calls, so tests can
// substitute a fake without a database.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleHealth reports the process and database state.
//
// HTTP: GET /health
// RESPONSE: 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "health check: database unreachable", slog.String("error", err.Error()))
		writeFailure(w, http.StatusServiceUnavailable, "unavailable", "Database unreachable",
			healthResponse{Status: "degraded", Database: "down"})
		return
	}
	writeSuccess(w, http.StatusOK, "OK", healthResponse{Status: "ok", Database: "up"})
}
