package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/model"
)

// CategoryService is the subset of *service.CategoryService the handlers use.
type CategoryService interface {
	List(ctx context.Context, kind model.TransactionKind, userID string) ([]model.Category, error)
	Stats(ctx context.Context, kind model.TransactionKind, userID string) ([]model.CategoryStat, error)
	Create(ctx context.Context, kind model.TransactionKind, userID, name string) (*model.Category, error)
	Delete(ctx context.Context, kind model.TransactionKind, userID, id string) error
}

// CategoryHandler serves /v1/categories/{kind}. The kind segment is
// "inflow" or "outflow"; the service rejects anything else.
type CategoryHandler struct {
	categories CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// HandleList returns every category of one kind.
//
// HTTP: GET /v1/categories/{kind}
// RESPONSE DATA: {"inflowCategories": [...], "pagination": {...}}
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	cs, err := h.categories.List(r.Context(), kind, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if cs == nil {
		cs = []model.Category{}
	}

	writeSuccess(w, http.StatusOK, kindLabel(kind)+" categories retrieved successfully",
		paginated(string(kind)+"Categories", cs, Pagination{CurrentPage: 1, Limit: len(cs), TotalCount: len(cs)}))
}

// HandleStats returns every category of one kind with its transaction count.
//
// HTTP: GET /v1/categories/{kind}/stats
func (h *CategoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.categories.Stats(r.Context(), kind, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if stats == nil {
		stats = []model.CategoryStat{}
	}

	writeSuccess(w, http.StatusOK, kindLabel(kind)+" category stats retrieved successfully",
		paginated(string(kind)+"Categories", stats, Pagination{CurrentPage: 1, Limit: len(stats), TotalCount: len(stats)}))
}

// HandleCreate adds a category.
//
// HTTP: POST /v1/categories/{kind}
// REQUEST BODY: {"name": "Groceries"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.categories.Create(r.Context(), kind, userID, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, kindLabel(kind)+" category created successfully", c)
}

// HandleDelete removes a category that has no transactions.
//
// HTTP: DELETE /v1/categories/{kind}/{id}
// RESPONSE: 204 No Content
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), kind, userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestScope reads the caller and the {kind} segment. On failure the
// response has already been written.
func requestScope(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, model.TransactionKind, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, apperror.Unauthorized("Authentication required"))
		return "", "", false
	}
	kind, err := model.ParseTransactionKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, logger, apperror.ValidationFailed("type", "type must be inflow or outflow"))
		return "", "", false
	}
	return userID, kind, true
}

// kindLabel turns "inflow" into "Inflow" for response messages.
func kindLabel(kind model.TransactionKind) string {
	s := kind.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
