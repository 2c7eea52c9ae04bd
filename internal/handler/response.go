package handler

// RESPONSE HELPERS:
// Every response from the API uses the same envelope:
//
//	{"success": true,  "statusCode": 200, "message": "...", "data": {...}}
//	{"success": false, "statusCode": 404, "message": "...", "error": "not_found", "data": {...}}
//
// Handlers call writeSuccess / writeError and never build the envelope by
// hand, so the frontend can always rely on the same fields.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/cashflow-api/internal/apperror"
)

// Envelope is the standard body of every JSON response.
type Envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"` // machine-readable type, failures only
	Data       any    `json:"data"`
}

// Pagination describes the page a list response holds.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	TotalCount  int `json:"totalCount"`
}

// paginated builds {"<key>": items, "pagination": {...}}.
func paginated(key string, items any, p Pagination) map[string]any {
	return map[string]any{
		key:          items,
		"pagination": p,
	}
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes,
// later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func writeFailure(w http.ResponseWriter, status int, errorType, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, Envelope{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Error:      errorType,
		Data:       data,
	})
}

// writeError maps a service error to an HTTP response.
//
// ERROR MAPPING:
// The service layer returns *apperror.AppError values wrapping a sentinel.
// errors.Is walks the wrap chain to find the sentinel, errors.As pulls out
// the message and payload:
//
//	ErrValidation   → 400 validation_error
//	ErrUnauthorized → 401 unauthorized
//	ErrForbidden    → 403 forbidden
//	ErrPolicy       → 403 policy_violation
//	ErrNotFound     → 404 not_found
//	ErrConflict     → 409 conflict
//	ErrUpstream     → 502 upstream_error
//
// Anything else is logged with the request id and answered with a generic
// 500. Internal messages can carry SQL or file paths and never reach the
// client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := statusFor(err)
		if status == http.StatusBadGateway {
			logger.ErrorContext(r.Context(), "upstream failure",
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		writeFailure(w, status, errorType, appErr.Message, errorData(appErr))
		return
	}

	logger.ErrorContext(r.Context(), "internal error",
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeFailure(w, http.StatusInternalServerError, "internal_error", "An internal error occurred", nil)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrPolicy):
		return http.StatusForbidden, "policy_violation"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorData merges the offending field into the structured payload.
func errorData(appErr *apperror.AppError) any {
	if appErr.Field == "" && len(appErr.Data) == 0 {
		return nil
	}
	data := make(map[string]any, len(appErr.Data)+1)
	for k, v := range appErr.Data {
		data[k] = v
	}
	if appErr.Field != "" {
		data["field"] = appErr.Field
	}
	return data
}

// decodeJSON reads a JSON request body into dst. Unknown fields are
// ignored; trailing data is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "Request body must contain a single JSON object")
	}
	return nil
}

const maxBodyBytes = 1 << 20
