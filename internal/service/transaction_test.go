package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

type transactionFixture struct {
	svc          *TransactionService
	transactions *fakeTransactionRepo
	categories   *fakeCategoryRepo
}

func newTestTransactionService() *transactionFixture {
	f := &transactionFixture{
		transactions: &fakeTransactionRepo{},
		categories:   newFakeCategoryRepo(),
	}
	f.svc = NewTransactionService(f.transactions, f.categories, quietLogger())
	return f
}

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestTransactionCreate(t *testing.T) {
	f := newTestTransactionService()
	cat := f.categories.add(model.Inflow, "user-1", "Salary")

	tx, err := f.svc.Create(context.Background(), model.Inflow, "user-1", CreateTransactionInput{
		Amount:      250000,
		CategoryID:  cat.ID,
		Description: strPtr("  March salary "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, int64(250000), tx.Amount)
	assert.Equal(t, cat.ID, tx.CategoryID)
	require.NotNil(t, tx.Description)
	assert.Equal(t, "March salary", *tx.Description)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Salary", tx.Category.Name)
}

func TestTransactionCreate_BlankDescriptionBecomesNil(t *testing.T) {
	f := newTestTransactionService()
	cat := f.categories.add(model.Outflow, "user-1", "Food")

	tx, err := f.svc.Create(context.Background(), model.Outflow, "user-1", CreateTransactionInput{
		Amount: 1, CategoryID: cat.ID, Description: strPtr("   "),
	})
	require.NoError(t, err)
	assert.Nil(t, tx.Description)
}

func TestTransactionCreate_Validation(t *testing.T) {
	f := newTestTransactionService()
	cat := f.categories.add(model.Outflow, "user-1", "Food")

	cases := []struct {
		name  string
		in    CreateTransactionInput
		field string
	}{
		{"zero amount", CreateTransactionInput{Amount: 0, CategoryID: cat.ID}, "amount"},
		{"negative amount", CreateTransactionInput{Amount: -500, CategoryID: cat.ID}, "amount"},
		{"missing category", CreateTransactionInput{Amount: 100}, "categoryId"},
		{"long description", CreateTransactionInput{Amount: 100, CategoryID: cat.ID, Description: strPtr(strings.Repeat("x", 256))}, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), model.Outflow, "user-1", tc.in)
			appErr := requireKind(t, err, apperror.ErrValidation)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}
	assert.Empty(t, f.transactions.rows)
}

func TestTransactionCreate_ForeignCategoryIsInvalid(t *testing.T) {
	f := newTestTransactionService()
	others := f.categories.add(model.Outflow, "user-2", "Food")
	wrongKind := f.categories.add(model.Inflow, "user-1", "Salary")

	for _, id := range []string{others.ID, wrongKind.ID, "cat-missing"} {
		_, err := f.svc.Create(context.Background(), model.Outflow, "user-1", CreateTransactionInput{Amount: 100, CategoryID: id})
		appErr := requireKind(t, err, apperror.ErrValidation)
		assert.Equal(t, "Invalid category id", appErr.Message)
	}
	assert.Empty(t, f.transactions.rows)
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestTransactionList_DefaultsAndPaging(t *testing.T) {
	f := newTestTransactionService()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		f.transactions.add(model.Outflow, "user-1", int64(100+i), base.AddDate(0, 0, i))
	}

	page, err := f.svc.List(context.Background(), repository.TransactionQuery{UserID: "user-1", Kind: model.Outflow})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, repository.DefaultListLimit, page.Limit)
	assert.Equal(t, 25, page.TotalCount)
	assert.Len(t, page.Items, repository.DefaultListLimit)
	assert.Equal(t, int64(124), page.Items[0].Amount, "newest first by default")

	page2, err := f.svc.List(context.Background(), repository.TransactionQuery{UserID: "user-1", Kind: model.Outflow, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 5)
	assert.Equal(t, 25, page2.TotalCount)
}

func TestTransactionList_EmptyIsNotNil(t *testing.T) {
	f := newTestTransactionService()

	page, err := f.svc.List(context.Background(), repository.TransactionQuery{UserID: "user-1", Kind: model.Inflow, Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestTransactionList_RejectsBadQuery(t *testing.T) {
	f := newTestTransactionService()

	_, err := f.svc.List(context.Background(), repository.TransactionQuery{UserID: "user-1", Kind: model.Inflow, Limit: 101})
	requireKind(t, err, apperror.ErrValidation)
	assert.Empty(t, f.transactions.queries, "invalid queries never reach storage")
}

func TestTransactionList_StorageError(t *testing.T) {
	f := newTestTransactionService()
	f.transactions.listErr = errors.New("database is locked")

	_, err := f.svc.List(context.Background(), repository.TransactionQuery{UserID: "user-1", Kind: model.Inflow})
	require.Error(t, err)
	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "storage errors stay internal")
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestTransactionDelete(t *testing.T) {
	f := newTestTransactionService()
	tx := f.transactions.add(model.Inflow, "user-1", 100, time.Now())

	err := f.svc.Delete(context.Background(), model.Inflow, "user-2", tx.ID)
	requireKind(t, err, apperror.ErrNotFound)

	err = f.svc.Delete(context.Background(), model.Outflow, "user-1", tx.ID)
	requireKind(t, err, apperror.ErrNotFound)

	require.NoError(t, f.svc.Delete(context.Background(), model.Inflow, "user-1", tx.ID))
	assert.Empty(t, f.transactions.rows)
}
