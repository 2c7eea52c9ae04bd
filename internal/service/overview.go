package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

// LatestCount is how many recent transactions an overview shows per side.
const LatestCount = 5

// Interval names a rolling window anchored on today.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

const periodLabelLayout = "2 Jan 2006"

var intervalLabels = map[Interval]string{
	IntervalDay:   "Today",
	IntervalWeek:  "This week",
	IntervalMonth: "This month",
	IntervalYear:  "This year",
}

// Window is an inclusive range of UTC days with a display label.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// ResolveWindow turns overview parameters into a concrete day range.
//
// An explicit start wins over the interval, and a missing end means the
// start day alone. Otherwise the interval is resolved against now:
// weeks run Sunday to Saturday, months and years are calendar-aligned.
func ResolveWindow(now time.Time, interval Interval, start, end *time.Time) (Window, error) {
	if start != nil {
		s := truncateDay(*start)
		e := s
		if end != nil {
			e = truncateDay(*end)
		}
		if e.Before(s) {
			return Window{}, apperror.ValidationFailed("endDate", "endDate must not be before startDate")
		}
		label := s.Format(periodLabelLayout)
		if !e.Equal(s) {
			label += " - " + e.Format(periodLabelLayout)
		}
		return Window{Start: s, End: e, Label: label}, nil
	}
	if end != nil {
		return Window{}, apperror.ValidationFailed("startDate", "startDate is required when endDate is set")
	}

	if interval == "" {
		interval = IntervalDay
	}
	label, ok := intervalLabels[interval]
	if !ok {
		return Window{}, apperror.ValidationFailed("interval", "interval must be day, week, month or year")
	}

	today := truncateDay(now)
	var s, e time.Time
	switch interval {
	case IntervalDay:
		s, e = today, today
	case IntervalWeek:
		s = today.AddDate(0, 0, -int(today.Weekday()))
		e = s.AddDate(0, 0, 6)
	case IntervalMonth:
		s = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		e = s.AddDate(0, 1, -1)
	case IntervalYear:
		s = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		e = time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return Window{Start: s, End: e, Label: label}, nil
}

// OverviewService aggregates both sides of a user's ledger over a window.
type OverviewService struct {
	transactions repository.TransactionRepository
	logger       *slog.Logger
	now          func() time.Time
}

func NewOverviewService(transactions repository.TransactionRepository, logger *slog.Logger) *OverviewService {
	return &OverviewService{transactions: transactions, logger: logger, now: time.Now}
}

type OverviewInput struct {
	UserID    string
	Interval  Interval
	StartDate *time.Time
	EndDate   *time.Time
}

type overviewSide struct {
	total  int64
	latest []model.Transaction
}

// Get computes totals and latest entries for inflows and outflows. The
// two sides are independent and load concurrently.
func (s *OverviewService) Get(ctx context.Context, in OverviewInput) (*model.Overview, error) {
	w, err := ResolveWindow(s.now(), in.Interval, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	var inflow, outflow overviewSide
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		side, err := s.loadSide(gctx, model.Inflow, in.UserID, w)
		inflow = side
		return err
	})
	g.Go(func() error {
		side, err := s.loadSide(gctx, model.Outflow, in.UserID, w)
		outflow = side
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &model.Overview{
		Period:             w.Label,
		StartDate:          w.Start.Format(repository.DateLayout),
		EndDate:            w.End.Format(repository.DateLayout),
		TotalInflowAmount:  inflow.total,
		TotalOutflowAmount: outflow.total,
		NetTotal:           inflow.total - outflow.total,
		LatestInflows:      inflow.latest,
		LatestOutflows:     outflow.latest,
	}, nil
}

func (s *OverviewService) loadSide(ctx context.Context, kind model.TransactionKind, userID string, w Window) (overviewSide, error) {
	q := repository.TransactionQuery{
		UserID:    userID,
		Kind:      kind,
		StartDate: &w.Start,
		EndDate:   &w.End,
		SortBy:    repository.SortByDate,
		SortOrder: repository.SortDesc,
		Limit:     LatestCount,
		Page:      1,
	}

	total, err := s.transactions.SumTransactions(ctx, q)
	if err != nil {
		return overviewSide{}, fmt.Errorf("service/overview: summing %s: %w", kind, err)
	}
	latest, _, err := s.transactions.ListTransactions(ctx, q)
	if err != nil {
		return overviewSide{}, fmt.Errorf("service/overview: latest %s: %w", kind, err)
	}
	if latest == nil {
		latest = []model.Transaction{}
	}
	return overviewSide{total: total, latest: latest}, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
