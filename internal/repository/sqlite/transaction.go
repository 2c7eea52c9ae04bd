package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

var _ repository.TransactionRepository = (*DB)(nil)

// CreateTransaction inserts an inflow or outflow. The category foreign key
// is the last line of defence; the service checks ownership first.
func (db *DB) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	tables, err := tablesFor(t.Kind)
	if err != nil {
		return err
	}

	now := db.timestamp()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, user_id, category_id, amount, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, tables.transactions),
		t.ID, t.UserID, t.CategoryID, t.Amount, nullableString(t.Description), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("categoryId", "Invalid category id")
		}
		return fmt.Errorf("sqlite: inserting %s: %w", t.Kind, err)
	}
	return nil
}

func (db *DB) DeleteTransaction(ctx context.Context, kind model.TransactionKind, userID, id string) error {
	tables, err := tablesFor(kind)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, tables.transactions),
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %s: %w", kind, id, err)
	}
	return requireOneRow(res, kind.String(), id)
}

// ListTransactions runs two queries over the same filter: a COUNT for the
// total and a page query with LIMIT/OFFSET. The total therefore never
// depends on Limit or Page.
func (db *DB) ListTransactions(ctx context.Context, q repository.TransactionQuery) ([]model.Transaction, int, error) {
	tables, err := tablesFor(q.Kind)
	if err != nil {
		return nil, 0, err
	}
	f := buildTransactionFilter(q)
	from := fmt.Sprintf(`FROM %s t JOIN %s c ON c.id = t.category_id WHERE %s`, tables.transactions, tables.categories, f.where)

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) `+from, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting %s: %w", q.Kind, err)
	}

	query := `SELECT t.id, t.user_id, t.category_id, t.amount, t.description, t.created_at, t.updated_at,
		c.id, c.user_id, c.name, c.created_at, c.updated_at ` + from + ` ORDER BY ` + orderClause(q)
	args := f.args
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(append([]any{}, f.args...), q.Limit, q.Offset())
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing %s: %w", q.Kind, err)
	}
	defer rows.Close()

	items := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows, q.Kind)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning %s: %w", q.Kind, err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating %s: %w", q.Kind, err)
	}
	return items, total, nil
}

// SumTransactions totals the amount of every row matching q, ignoring
// sort and pagination.
func (db *DB) SumTransactions(ctx context.Context, q repository.TransactionQuery) (int64, error) {
	tables, err := tablesFor(q.Kind)
	if err != nil {
		return 0, err
	}
	f := buildTransactionFilter(q)

	var total int64
	err = db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(SUM(t.amount), 0) FROM %s t JOIN %s c ON c.id = t.category_id WHERE %s`,
			tables.transactions, tables.categories, f.where),
		f.args...,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: summing %s: %w", q.Kind, err)
	}
	return total, nil
}

func scanTransaction(row rowScanner, kind model.TransactionKind) (*model.Transaction, error) {
	var (
		t           model.Transaction
		c           model.Category
		description sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.Amount, &description, &t.CreatedAt, &t.UpdatedAt,
		&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	t.Kind = kind
	c.Kind = kind
	t.Category = &c
	return &t, nil
}
