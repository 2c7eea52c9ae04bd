package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
	"github.com/sakif/cashflow-api/internal/summarizer"
)

// SummaryService serves the natural-language summary of the previous
// calendar month. A summary is generated at most once per user and month
// and then served from storage forever.
type SummaryService struct {
	summaries    repository.SummaryRepository
	transactions repository.TransactionRepository
	generator    summarizer.Generator
	timeout      time.Duration
	logger       *slog.Logger
	now          func() time.Time

	// Collapses concurrent first requests for the same (user, month) in
	// this process. Across processes the unique index decides.
	inflight singleflight.Group
}

func NewSummaryService(
	summaries repository.SummaryRepository,
	transactions repository.TransactionRepository,
	generator summarizer.Generator,
	timeout time.Duration,
	logger *slog.Logger,
) *SummaryService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SummaryService{
		summaries:    summaries,
		transactions: transactions,
		generator:    generator,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// LastMonth returns the first day of the month before now's month.
func LastMonth(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
}

// GetLastMonthSummary returns the stored summary for last month, generating
// and storing it first if needed. Generation failures are not retried.
func (s *SummaryService) GetLastMonthSummary(ctx context.Context, userID string) (*model.FinancialSummary, error) {
	month := LastMonth(s.now())

	if summary, err := s.summaries.GetSummary(ctx, userID, month); err == nil {
		return summary, nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/summary: loading summary: %w", err)
	}

	// The shared work runs detached from whichever request started it, so
	// one client disconnecting does not fail the others waiting on the
	// same key. Each caller still stops waiting when its own ctx ends.
	key := userID + "|" + month.Format(repository.DateLayout)
	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.generate(context.WithoutCancel(ctx), userID, month)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.FinancialSummary), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SummaryService) generate(ctx context.Context, userID string, month time.Time) (*model.FinancialSummary, error) {
	in, err := s.loadMonth(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.generator.Generate(genCtx, in)
	if errors.Is(err, summarizer.ErrNotConfigured) {
		return nil, apperror.Forbidden("Financial summaries are not enabled")
	}
	if err != nil {
		return nil, apperror.Upstream("Failed to generate financial summary", err)
	}
	s.logger.InfoContext(ctx, "financial summary generated",
		slog.String("userID", userID),
		slog.String("period", month.Format(repository.DateLayout)),
		slog.Duration("duration", time.Since(start)),
	)

	summary := &model.FinancialSummary{
		UserID:  userID,
		Period:  month.Format(repository.DateLayout),
		Content: text,
	}
	err = s.summaries.CreateSummary(ctx, summary)
	if errors.Is(err, apperror.ErrConflict) {
		// Another process stored one first; theirs is the summary of record.
		winner, getErr := s.summaries.GetSummary(ctx, userID, month)
		if getErr != nil {
			return nil, fmt.Errorf("service/summary: re-reading summary: %w", getErr)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/summary: storing summary: %w", err)
	}
	return summary, nil
}

func (s *SummaryService) loadMonth(ctx context.Context, userID string, month time.Time) (summarizer.Input, error) {
	first := month
	last := month.AddDate(0, 1, -1)
	in := summarizer.Input{Month: month}

	g, gctx := errgroup.WithContext(ctx)
	for _, side := range []struct {
		kind model.TransactionKind
		dst  *[]model.Transaction
	}{
		{model.Inflow, &in.Inflows},
		{model.Outflow, &in.Outflows},
	} {
		g.Go(func() error {
			items, _, err := s.transactions.ListTransactions(gctx, repository.TransactionQuery{
				UserID:    userID,
				Kind:      side.kind,
				StartDate: &first,
				EndDate:   &last,
				SortBy:    repository.SortByDate,
				SortOrder: repository.SortAsc,
			})
			if err != nil {
				return fmt.Errorf("service/summary: loading %s: %w", side.kind, err)
			}
			*side.dst = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summarizer.Input{}, err
	}
	return in, nil
}
