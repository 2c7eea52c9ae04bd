// Package repository defines the storage contracts the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
//
// Services only ever see these interfaces, so tests can swap in
// in-memory fakes without touching a database.
package repository

import (
	"context"
	"time"

	"github.com/sakif/cashflow-api/internal/model"
)

type UserRepository interface {
	// CreateUser inserts the user and seeds the given categories in one
	// transaction. Nothing is written if any insert fails.
	CreateUser(ctx context.Context, user *model.User, inflowCategories, outflowCategories []string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	LinkGoogleAccount(ctx context.Context, userID, googleID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateMetadata(ctx context.Context, userID string, metadata []byte) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, kind model.TransactionKind, userID, id string) (*model.Category, error)
	FindCategoryByName(ctx context.Context, kind model.TransactionKind, userID, name string) (*model.Category, error)
	ListCategories(ctx context.Context, kind model.TransactionKind, userID string) ([]model.Category, error)
	ListCategoryStats(ctx context.Context, kind model.TransactionKind, userID string) ([]model.CategoryStat, error)
	CountCategoryTransactions(ctx context.Context, kind model.TransactionKind, userID, id string) (int, error)
	DeleteCategory(ctx context.Context, kind model.TransactionKind, userID, id string) error
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	DeleteTransaction(ctx context.Context, kind model.TransactionKind, userID, id string) error
	// ListTransactions returns one page of matches and the total number of
	// matches ignoring Limit and Page.
	ListTransactions(ctx context.Context, q TransactionQuery) ([]model.Transaction, int, error)
	SumTransactions(ctx context.Context, q TransactionQuery) (int64, error)
}

type SummaryRepository interface {
	GetSummary(ctx context.Context, userID string, period time.Time) (*model.FinancialSummary, error)
	CreateSummary(ctx context.Context, summary *model.FinancialSummary) error
}
