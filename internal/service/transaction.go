package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

const maxDescriptionLength = 255

// TransactionService records and queries inflows and outflows.
type TransactionService struct {
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
	logger       *slog.Logger
}

func NewTransactionService(
	transactions repository.TransactionRepository,
	categories repository.CategoryRepository,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{transactions: transactions, categories: categories, logger: logger}
}

type CreateTransactionInput struct {
	Amount      int64 // kobo
	CategoryID  string
	Description *string
}

// TransactionPage is one page of a list query.
type TransactionPage struct {
	Items      []model.Transaction
	Page       int
	Limit      int
	TotalCount int
}

// Create records a transaction against one of the caller's categories of
// the same kind.
func (s *TransactionService) Create(ctx context.Context, kind model.TransactionKind, userID string, in CreateTransactionInput) (*model.Transaction, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "Amount must be greater than 0")
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		return nil, apperror.ValidationFailed("categoryId", "Category id is required")
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}

	// Someone else's category, or one of the other kind, looks exactly
	// like a missing one.
	category, err := s.categories.GetCategory(ctx, kind, userID, in.CategoryID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ValidationFailed("categoryId", "Invalid category id")
	}
	if err != nil {
		return nil, fmt.Errorf("service/transaction: loading category: %w", err)
	}

	tx := &model.Transaction{
		Kind:        kind,
		UserID:      userID,
		Amount:      in.Amount,
		CategoryID:  category.ID,
		Description: desc,
	}
	if err := s.transactions.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("service/transaction: creating %s: %w", kind, err)
	}
	tx.Category = category

	s.logger.InfoContext(ctx, "transaction created",
		slog.String("userID", userID),
		slog.String("kind", kind.String()),
		slog.String("transactionID", tx.ID),
	)
	return tx, nil
}

// List runs a client-supplied query after applying defaults and bounds.
func (s *TransactionService) List(ctx context.Context, q repository.TransactionQuery) (*TransactionPage, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	items, total, err := s.transactions.ListTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service/transaction: listing %s: %w", q.Kind, err)
	}
	if items == nil {
		items = []model.Transaction{}
	}

	return &TransactionPage{Items: items, Page: q.Page, Limit: q.Limit, TotalCount: total}, nil
}

func (s *TransactionService) Delete(ctx context.Context, kind model.TransactionKind, userID, id string) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if err := s.transactions.DeleteTransaction(ctx, kind, userID, id); err != nil {
		return fmt.Errorf("service/transaction: deleting %s %s: %w", kind, id, err)
	}
	return nil
}

// normalizeDescription trims; blank becomes nil.
func normalizeDescription(d *string) (*string, error) {
	if d == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("Description must be at most %d characters", maxDescriptionLength))
	}
	return &trimmed, nil
}
