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

const (
	minCategoryNameLength = 2
	maxCategoryNameLength = 50

	msgCategoryExists = "Category with this name already exists"
	msgCategoryInUse  = "Cannot delete a category that has attached transactions."
)

// CategoryService manages a user's inflow and outflow categories.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *slog.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

func (s *CategoryService) List(ctx context.Context, kind model.TransactionKind, userID string) ([]model.Category, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	cs, err := s.categories.ListCategories(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("service/category: listing %s categories: %w", kind, err)
	}
	return cs, nil
}

// Stats lists categories with the number of transactions filed under each.
func (s *CategoryService) Stats(ctx context.Context, kind model.TransactionKind, userID string) ([]model.CategoryStat, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	stats, err := s.categories.ListCategoryStats(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("service/category: %s category stats: %w", kind, err)
	}
	return stats, nil
}

// Create adds a category. Names are trimmed and must be unique per user
// and kind, ignoring case.
func (s *CategoryService) Create(ctx context.Context, kind model.TransactionKind, userID, name string) (*model.Category, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minCategoryNameLength || n > maxCategoryNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("Category name must be between %d and %d characters", minCategoryNameLength, maxCategoryNameLength))
	}

	// Friendlier than waiting for the constraint; the unique index still
	// catches a concurrent insert and reports the same conflict.
	if _, err := s.categories.FindCategoryByName(ctx, kind, userID, name); err == nil {
		return nil, apperror.Conflict(msgCategoryExists, map[string]any{"categoryName": name})
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/category: checking name: %w", err)
	}

	c := &model.Category{Kind: kind, UserID: userID, Name: name}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service/category: creating %s category: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("userID", userID),
		slog.String("kind", kind.String()),
		slog.String("categoryID", c.ID),
	)
	return c, nil
}

// Delete removes a category that nothing references. A category that still
// has transactions is refused, never cascaded.
func (s *CategoryService) Delete(ctx context.Context, kind model.TransactionKind, userID, id string) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if _, err := s.categories.GetCategory(ctx, kind, userID, id); err != nil {
		return fmt.Errorf("service/category: loading category: %w", err)
	}

	n, err := s.categories.CountCategoryTransactions(ctx, kind, userID, id)
	if err != nil {
		return fmt.Errorf("service/category: counting transactions: %w", err)
	}
	if n > 0 {
		return apperror.PolicyViolation(msgCategoryInUse)
	}

	if err := s.categories.DeleteCategory(ctx, kind, userID, id); err != nil {
		return fmt.Errorf("service/category: deleting category: %w", err)
	}

	s.logger.InfoContext(ctx, "category deleted",
		slog.String("userID", userID),
		slog.String("kind", kind.String()),
		slog.String("categoryID", id),
	)
	return nil
}

func validateKind(kind model.TransactionKind) error {
	if _, err := model.ParseTransactionKind(string(kind)); err != nil {
		return apperror.ValidationFailed("type", "type must be inflow or outflow")
	}
	return nil
}
