package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

var _ repository.SummaryRepository = (*DB)(nil)

func periodKey(period time.Time) string {
	y, m, _ := period.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).Format(repository.DateLayout)
}

// GetSummary returns the stored summary for the month containing period.
func (db *DB) GetSummary(ctx context.Context, userID string, period time.Time) (*model.FinancialSummary, error) {
	key := periodKey(period)

	var s model.FinancialSummary
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, period, content, created_at FROM financial_summaries WHERE user_id = ? AND period = ?`,
		userID, key,
	).Scan(&s.ID, &s.UserID, &s.Period, &s.Content, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("financial summary", key)
		}
		return nil, fmt.Errorf("sqlite: getting summary %s for user %s: %w", key, userID, err)
	}
	return &s, nil
}

// CreateSummary stores a summary once per (user, month). A second insert
// for the same month returns a conflict and leaves the first untouched.
// s.Period may be any day in the month; it is stored as the first day.
func (db *DB) CreateSummary(ctx context.Context, s *model.FinancialSummary) error {
	period, err := time.Parse(repository.DateLayout, s.Period)
	if err != nil {
		return apperror.ValidationFailed("period", "period must be a YYYY-MM-DD date")
	}

	s.ID = newID()
	s.Period = periodKey(period)
	s.CreatedAt = db.timestamp()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO financial_summaries (id, user_id, period, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Period, s.Content, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Summary already exists for this period", map[string]any{"period": s.Period})
		}
		return fmt.Errorf("sqlite: inserting summary %s for user %s: %w", s.Period, s.UserID, err)
	}
	return nil
}
