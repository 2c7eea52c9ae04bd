package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/mailer"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
	"github.com/sakif/cashflow-api/internal/summarizer"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory implementations of the repository and collaborator interfaces.
// Hand-written fakes keep tests readable: you can see exactly what each
// one does. Set the *Err fields to simulate a storage failure.

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	seeded map[string][2][]string
	nextID int

	createErr   error
	metadataErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, seeded: map[string][2][]string{}}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User, inflow, outflow []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("User with this email already exists", map[string]any{"email": user.Email})
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	f.seeded[user.ID] = [2][]string{inflow, outflow}
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, what string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("User", what)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) }, email)
}

func (f *fakeUserRepo) GetUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }, googleID)
}

func (f *fakeUserRepo) LinkGoogleAccount(_ context.Context, userID, googleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("User", userID)
	}
	u.GoogleID = &googleID
	u.IsEmailVerified = true
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("User", userID)
	}
	u.PasswordHash = &hash
	return nil
}

func (f *fakeUserRepo) UpdateMetadata(_ context.Context, userID string, metadata []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metadataErr != nil {
		return f.metadataErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("User", userID)
	}
	u.Metadata = append([]byte(nil), metadata...)
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[string]*model.Category
	counts     map[string]int // transactions per category id
	nextID     int

	// insertRace makes CreateCategory report a constraint conflict, as if
	// a concurrent request won between the pre-check and the insert.
	insertRace bool
	deleted    []string
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]*model.Category{}, counts: map[string]int{}}
}

func (f *fakeCategoryRepo) add(kind model.TransactionKind, userID, name string) *model.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &model.Category{ID: fmt.Sprintf("cat-%d", f.nextID), Kind: kind, UserID: userID, Name: name}
	f.categories[c.ID] = c
	return c
}

func (f *fakeCategoryRepo) CreateCategory(_ context.Context, c *model.Category) error {
	if f.insertRace {
		return apperror.Conflict("Category with this name already exists", map[string]any{"categoryName": c.Name})
	}
	created := f.add(c.Kind, c.UserID, c.Name)
	*c = *created
	return nil
}

func (f *fakeCategoryRepo) GetCategory(_ context.Context, kind model.TransactionKind, userID, id string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok || c.Kind != kind || c.UserID != userID {
		return nil, apperror.NotFound("Category", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategoryRepo) FindCategoryByName(_ context.Context, kind model.TransactionKind, userID, name string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Kind == kind && c.UserID == userID && strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("Category", name)
}

func (f *fakeCategoryRepo) ListCategories(_ context.Context, kind model.TransactionKind, userID string) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Category
	for _, c := range f.categories {
		if c.Kind == kind && c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategoryRepo) ListCategoryStats(ctx context.Context, kind model.TransactionKind, userID string) ([]model.CategoryStat, error) {
	cs, _ := f.ListCategories(ctx, kind, userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CategoryStat, len(cs))
	for i, c := range cs {
		out[i] = model.CategoryStat{Category: c, TransactionCount: f.counts[c.ID]}
	}
	return out, nil
}

func (f *fakeCategoryRepo) CountCategoryTransactions(_ context.Context, _ model.TransactionKind, _ string, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[id], nil
}

func (f *fakeCategoryRepo) DeleteCategory(_ context.Context, kind model.TransactionKind, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok || c.Kind != kind || c.UserID != userID {
		return apperror.NotFound("Category", id)
	}
	delete(f.categories, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTransactionRepo struct {
	mu      sync.Mutex
	rows    []model.Transaction
	nextID  int
	queries []repository.TransactionQuery
	listErr error
}

func (f *fakeTransactionRepo) add(kind model.TransactionKind, userID string, amount int64, at time.Time) model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tx := model.Transaction{
		ID:        fmt.Sprintf("tx-%03d", f.nextID),
		Kind:      kind,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: at,
	}
	f.rows = append(f.rows, tx)
	return tx
}

func (f *fakeTransactionRepo) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	created := f.add(tx.Kind, tx.UserID, tx.Amount, time.Now())
	tx.ID = created.ID
	tx.CreatedAt = created.CreatedAt
	return nil
}

func (f *fakeTransactionRepo) DeleteTransaction(_ context.Context, kind model.TransactionKind, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.Kind == kind && r.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("Transaction", id)
}

func (f *fakeTransactionRepo) match(q repository.TransactionQuery) []model.Transaction {
	var out []model.Transaction
	for _, r := range f.rows {
		if r.UserID != q.UserID || r.Kind != q.Kind {
			continue
		}
		day := truncateDay(r.CreatedAt)
		if q.StartDate != nil && day.Before(truncateDay(*q.StartDate)) {
			continue
		}
		end := q.EndDate
		if end == nil && q.StartDate != nil {
			end = q.StartDate
		}
		if end != nil && day.After(truncateDay(*end)) {
			continue
		}
		out = append(out, r)
	}
	asc := q.SortOrder == repository.SortAsc
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt) == asc
		}
		return (out[i].ID < out[j].ID) == asc
	})
	return out
}

func (f *fakeTransactionRepo) ListTransactions(_ context.Context, q repository.TransactionQuery) ([]model.Transaction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	all := f.match(q)
	page := all
	if q.Limit > 0 {
		start := q.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + q.Limit
		if end > len(all) {
			end = len(all)
		}
		page = all[start:end]
	}
	return page, len(all), nil
}

func (f *fakeTransactionRepo) SumTransactions(_ context.Context, q repository.TransactionQuery) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, r := range f.match(q) {
		sum += r.Amount
	}
	return sum, nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*model.FinancialSummary

	// raceWinner, when set, is stored just before CreateSummary reports
	// a conflict, simulating another process inserting first.
	raceWinner *model.FinancialSummary
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{summaries: map[string]*model.FinancialSummary{}}
}

func summaryKey(userID, period string) string { return userID + "|" + period }

func (f *fakeSummaryRepo) GetSummary(_ context.Context, userID string, period time.Time) (*model.FinancialSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	s, ok := f.summaries[summaryKey(userID, first.Format(repository.DateLayout))]
	if !ok {
		return nil, apperror.NotFound("Financial summary", userID)
	}
	return s, nil
}

func (f *fakeSummaryRepo) CreateSummary(_ context.Context, s *model.FinancialSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceWinner != nil {
		f.summaries[summaryKey(f.raceWinner.UserID, f.raceWinner.Period)] = f.raceWinner
		f.raceWinner = nil
	}
	key := summaryKey(s.UserID, s.Period)
	if _, exists := f.summaries[key]; exists {
		return apperror.Conflict("Financial summary already exists", nil)
	}
	s.ID = "summary-" + key
	f.summaries[key] = s
	return nil
}

type fakeGoogle struct {
	user *auth.GoogleUser
	err  error
}

func (f *fakeGoogle) Exchange(context.Context, string, string) (*auth.GoogleUser, error) {
	return f.user, f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	last  summarizer.Input
	text  string
	err   error
	delay time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, in summarizer.Input) (string, error) {
	f.mu.Lock()
	f.calls++
	f.last = in
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustDay(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(repository.DateLayout, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return &d
}
