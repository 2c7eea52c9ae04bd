package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
	"github.com/sakif/cashflow-api/internal/service"
)

// TransactionService is the subset of *service.TransactionService the
// handlers use.
type TransactionService interface {
	Create(ctx context.Context, kind model.TransactionKind, userID string, in service.CreateTransactionInput) (*model.Transaction, error)
	List(ctx context.Context, q repository.TransactionQuery) (*service.TransactionPage, error)
	Delete(ctx context.Context, kind model.TransactionKind, userID, id string) error
}

// TransactionHandler serves /v1/transactions/{kind}.
type TransactionHandler struct {
	transactions TransactionService
	logger       *slog.Logger
}

func NewTransactionHandler(transactions TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

type createTransactionRequest struct {
	Amount      int64   `json:"amount"` // kobo
	CategoryID  string  `json:"categoryId"`
	Description *string `json:"description"`
}

// HandleCreate records an inflow or outflow.
//
// HTTP: POST /v1/transactions/{kind}
// REQUEST BODY: {"amount": 150000, "categoryId": "...", "description": "..."}
func (h *TransactionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tx, err := h.transactions.Create(r.Context(), kind, userID, service.CreateTransactionInput{
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, kindLabel(kind)+" created successfully", tx)
}

// HandleList returns one page of transactions.
//
// HTTP: GET /v1/transactions/{kind}
//
// QUERY PARAMETERS (all optional, combined with AND):
//
//	search     substring of the description, case-insensitive
//	categories comma-separated category names
//	startDate  YYYY-MM-DD; alone it selects that day
//	endDate    YYYY-MM-DD, inclusive
//	sortBy     date | amount        (default date)
//	sortOrder  asc | desc           (default desc)
//	limit      1..100               (default 20)
//	page       1..                  (default 1)
func (h *TransactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	q, err := parseTransactionQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q.UserID = userID
	q.Kind = kind

	page, err := h.transactions.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Retrieved transactions successfully",
		paginated("transactions", page.Items, Pagination{
			CurrentPage: page.Page,
			Limit:       page.Limit,
			TotalCount:  page.TotalCount,
		}))
}

// HandleDelete removes one of the caller's transactions.
//
// HTTP: DELETE /v1/transactions/{kind}/{id}
// RESPONSE: 204 No Content
func (h *TransactionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := requestScope(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.transactions.Delete(r.Context(), kind, userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseTransactionQuery reads the list filters. It only checks syntax;
// defaults and bounds are applied by TransactionQuery.Normalize.
func parseTransactionQuery(v url.Values) (repository.TransactionQuery, error) {
	q := repository.TransactionQuery{
		Search:     v.Get("search"),
		Categories: repository.SplitNames(v.Get("categories")),
		SortBy:     repository.SortField(v.Get("sortBy")),
		SortOrder:  repository.SortOrder(v.Get("sortOrder")),
	}

	var err error
	if q.StartDate, err = parseDateParam(v, "startDate"); err != nil {
		return q, err
	}
	if q.EndDate, err = parseDateParam(v, "endDate"); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(v, "limit"); err != nil {
		return q, err
	}
	if q.Page, err = parseIntParam(v, "page"); err != nil {
		return q, err
	}
	return q, nil
}

func parseDateParam(v url.Values, key string) (*time.Time, error) {
	raw := v.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(repository.DateLayout, raw)
	if err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

// parseIntParam returns 0 when the parameter is absent.
func parseIntParam(v url.Values, key string) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed(key, key+" must be a positive integer")
	}
	return n, nil
}
