package repository

import (
	"strings"
	"time"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	// DateLayout is the wire and storage format for day-granularity dates.
	DateLayout = "2006-01-02"
)

type SortField string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TransactionQuery describes a filtered, sorted, paginated transaction
// lookup. Every filter is optional; set filters are AND-combined.
//
// StartDate and EndDate are compared at day granularity, so the time of
// day is ignored. A StartDate without an EndDate selects that single day.
type TransactionQuery struct {
	UserID string
	Kind   model.TransactionKind

	// Search is a case-insensitive substring match on the description.
	Search string
	// Categories matches category names case-insensitively.
	Categories []string

	StartDate *time.Time
	EndDate   *time.Time

	SortBy    SortField
	SortOrder SortOrder

	// Limit <= 0 returns every matching row. Use Normalize for
	// client-supplied queries so the default and bounds apply.
	Limit int
	Page  int
}

// Offset is the number of rows skipped before the current page.
func (q TransactionQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Normalize applies defaults and checks bounds for a client-supplied query.
func (q TransactionQuery) Normalize() (TransactionQuery, error) {
	if q.UserID == "" {
		return q, apperror.ValidationFailed("userId", "user id is required")
	}
	if _, err := model.ParseTransactionKind(string(q.Kind)); err != nil {
		return q, apperror.ValidationFailed("type", "type must be inflow or outflow")
	}

	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit < 1 || q.Limit > MaxListLimit {
		return q, apperror.ValidationFailed("limit", "limit must be between 1 and 100")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return q, apperror.ValidationFailed("page", "page must be at least 1")
	}

	switch q.SortBy {
	case "":
		q.SortBy = SortByDate
	case SortByDate, SortByAmount:
	default:
		return q, apperror.ValidationFailed("sortBy", "sortBy must be date or amount")
	}
	switch q.SortOrder {
	case "":
		q.SortOrder = SortDesc
	case SortAsc, SortDesc:
	default:
		return q, apperror.ValidationFailed("sortOrder", "sortOrder must be asc or desc")
	}

	q.Search = strings.TrimSpace(q.Search)
	q.Categories = cleanNames(q.Categories)

	if q.StartDate != nil && q.EndDate != nil && truncateDay(*q.EndDate).Before(truncateDay(*q.StartDate)) {
		return q, apperror.ValidationFailed("endDate", "endDate must not be before startDate")
	}

	return q, nil
}

// SplitNames turns a comma-separated list into trimmed, non-empty names.
func SplitNames(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return cleanNames(strings.Split(csv, ","))
}

func cleanNames(names []string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
