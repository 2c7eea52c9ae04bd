package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

// CreateCategory inserts a category. The unique index on
// (user_id, casefold(trim(name))) rejects duplicates even when two requests
// race past the service's pre-check.
func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	tables, err := tablesFor(c.Kind)
	if err != nil {
		return err
	}

	now := db.timestamp()
	c.ID = newID()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`, tables.categories),
		c.ID, c.UserID, c.Name, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Category with this name already exists", map[string]any{"categoryName": c.Name})
		}
		return fmt.Errorf("sqlite: inserting %s category %q: %w", c.Kind, c.Name, err)
	}
	return nil
}

func (db *DB) GetCategory(ctx context.Context, kind model.TransactionKind, userID, id string) (*model.Category, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, user_id, name, created_at, updated_at FROM %s WHERE id = ? AND user_id = ?`, tables.categories),
		id, userID,
	)
	c, err := scanCategory(row, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting %s category %s: %w", kind, id, err)
	}
	return c, nil
}

// FindCategoryByName looks up a category ignoring case and surrounding
// whitespace, the same normalization the unique index uses.
func (db *DB) FindCategoryByName(ctx context.Context, kind model.TransactionKind, userID, name string) (*model.Category, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, user_id, name, created_at, updated_at FROM %s
		 WHERE user_id = ? AND casefold(trim(name)) = ?`, tables.categories),
		userID, foldName(name),
	)
	c, err := scanCategory(row, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", name)
		}
		return nil, fmt.Errorf("sqlite: finding %s category %q: %w", kind, name, err)
	}
	return c, nil
}

func (db *DB) ListCategories(ctx context.Context, kind model.TransactionKind, userID string) ([]model.Category, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, user_id, name, created_at, updated_at FROM %s
		 WHERE user_id = ? ORDER BY name COLLATE NOCASE, id`, tables.categories),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s categories: %w", kind, err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s category: %w", kind, err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s categories: %w", kind, err)
	}
	return categories, nil
}

// ListCategoryStats returns every category of the kind with the number of
// transactions filed under it. Unused categories report zero.
func (db *DB) ListCategoryStats(ctx context.Context, kind model.TransactionKind, userID string) ([]model.CategoryStat, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT c.id, c.user_id, c.name, c.created_at, c.updated_at, COUNT(t.id)
		 FROM %s c
		 LEFT JOIN %s t ON t.category_id = c.id
		 WHERE c.user_id = ?
		 GROUP BY c.id
		 ORDER BY c.name COLLATE NOCASE, c.id`, tables.categories, tables.transactions),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s category stats: %w", kind, err)
	}
	defer rows.Close()

	stats := []model.CategoryStat{}
	for rows.Next() {
		var s model.CategoryStat
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.TransactionCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s category stat: %w", kind, err)
		}
		s.Kind = kind
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s category stats: %w", kind, err)
	}
	return stats, nil
}

func (db *DB) CountCategoryTransactions(ctx context.Context, kind model.TransactionKind, userID, id string) (int, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return 0, err
	}

	var n int
	err = db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE category_id = ? AND user_id = ?`, tables.transactions),
		id, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting transactions for %s category %s: %w", kind, id, err)
	}
	return n, nil
}

// DeleteCategory removes a category owned by userID. The ON DELETE
// RESTRICT foreign key refuses the delete while transactions still
// reference the category; that refusal is reported as a policy violation.
func (db *DB) DeleteCategory(ctx context.Context, kind model.TransactionKind, userID, id string) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, tables.categories),
		id, userID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.PolicyViolation("Cannot delete a category that has attached transactions.")
		}
		return fmt.Errorf("sqlite: deleting %s category %s: %w", kind, id, err)
	}
	return requireOneRow(res, "category", id)
}

func scanCategory(row rowScanner, kind model.TransactionKind) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = kind
	return &c, nil
}
