package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
)

func day(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestNormalize_Defaults(t *testing.T) {
	q, err := TransactionQuery{UserID: "u1", Kind: model.Inflow}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, DefaultListLimit, q.Limit)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, SortByDate, q.SortBy)
	assert.Equal(t, SortDesc, q.SortOrder)
	assert.Equal(t, 0, q.Offset())
}

func TestNormalize_Rejects(t *testing.T) {
	base := TransactionQuery{UserID: "u1", Kind: model.Outflow}

	tests := []struct {
		name  string
		q     TransactionQuery
		field string
	}{
		{"missing user", TransactionQuery{Kind: model.Inflow}, "userId"},
		{"unknown kind", TransactionQuery{UserID: "u1", Kind: "transfer"}, "type"},
		{"limit above max", func() TransactionQuery { q := base; q.Limit = 101; return q }(), "limit"},
		{"negative limit", func() TransactionQuery { q := base; q.Limit = -1; return q }(), "limit"},
		{"negative page", func() TransactionQuery { q := base; q.Page = -2; return q }(), "page"},
		{"bad sort field", func() TransactionQuery { q := base; q.SortBy = "name"; return q }(), "sortBy"},
		{"bad sort order", func() TransactionQuery { q := base; q.SortOrder = "up"; return q }(), "sortOrder"},
		{"end before start", func() TransactionQuery {
			q := base
			q.StartDate = day("2025-03-10")
			q.EndDate = day("2025-03-09")
			return q
		}(), "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.q.Normalize()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestNormalize_SameDayRangeIsValid(t *testing.T) {
	q := TransactionQuery{
		UserID:    "u1",
		Kind:      model.Inflow,
		StartDate: day("2025-03-10"),
		EndDate:   day("2025-03-10"),
	}
	_, err := q.Normalize()
	assert.NoError(t, err)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, TransactionQuery{Limit: 20, Page: 1}.Offset())
	assert.Equal(t, 40, TransactionQuery{Limit: 20, Page: 3}.Offset())
	assert.Equal(t, 0, TransactionQuery{Limit: 0, Page: 3}.Offset(), "unbounded queries never skip rows")
}

func TestSplitNames(t *testing.T) {
	assert.Nil(t, SplitNames(""))
	assert.Nil(t, SplitNames(" , ,"))
	assert.Equal(t, []string{"Food", "Rent"}, SplitNames(" Food ,,Rent "))
}
