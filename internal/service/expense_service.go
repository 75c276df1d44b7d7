package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/categorizer"
	"spendwise/internal/events"
	"spendwise/internal/insights"
	"spendwise/internal/models"

	"golang.org/x/sync/singleflight"
)

// ErrInvalidExpense wraps every validation failure of submitted expense data.
var ErrInvalidExpense = errors.New("invalid expense")

// ExpenseStore is the persistence the service needs. Get, Update and Delete
// return storage.ErrNotFound for rows that are missing or owned by someone else.
type ExpenseStore interface {
	ListExpensesByOwner(ctx context.Context, ownerID int64) ([]models.Expense, error)
	GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error)
	CreateExpense(ctx context.Context, e *models.Expense) error
	UpdateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error
}

// ExpenseService orchestrates categorization, storage and change events.
type ExpenseService struct {
	store       ExpenseStore
	categorizer *categorizer.Categorizer
	publisher   events.Publisher
	now         func() time.Time

	insightCalls singleflight.Group
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithPublisher sets the publisher notified after every successful write.
func WithPublisher(p events.Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithCategorizer replaces the built-in keyword categorizer.
func WithCategorizer(c *categorizer.Categorizer) Option {
	return func(s *ExpenseService) { s.categorizer = c }
}

// WithClock overrides the time source used for default expense dates.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

// NewExpenseService creates a service backed by store.
func NewExpenseService(store ExpenseStore, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:       store,
		categorizer: categorizer.New(),
		publisher:   events.NopPublisher{},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the expenses of ownerID, newest first.
func (s *ExpenseService) List(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	expenses, err := s.store.ListExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Add validates in, categorizes it from its description and stores it.
func (s *ExpenseService) Add(ctx context.Context, ownerID int64, in models.ExpenseInput) (*models.Expense, error) {
	if in.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidExpense)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidExpense)
	}

	e := &models.Expense{
		UserID:      ownerID,
		Amount:      *in.Amount,
		Currency:    normalizeCurrency(in.Currency),
		Description: desc,
		Date:        s.now(),
		RawCategory: in.RawCategory,
	}
	if in.Date != nil && !in.Date.IsZero() {
		e.Date = *in.Date
	}
	s.categorize(ctx, e)

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, events.ExpenseCreated, *e)
	return e, nil
}

// Update applies patch to an expense of ownerID and re-derives its category
// from the resulting description.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id int64, patch models.ExpensePatch) (*models.Expense, error) {
	e, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}

	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		e.Currency = normalizeCurrency(*patch.Currency)
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", ErrInvalidExpense)
		}
		e.Description = desc
	}
	if patch.Date != nil && !patch.Date.IsZero() {
		e.Date = *patch.Date
	}
	if patch.RawCategory != nil {
		e.RawCategory = *patch.RawCategory
	}
	s.categorize(ctx, e)

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("update expense %d: %w", id, err)
	}

	s.publish(ctx, events.ExpenseUpdated, *e)
	return e, nil
}

// Delete removes an expense of ownerID.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.publish(ctx, events.ExpenseDeleted, models.Expense{ID: id, UserID: ownerID})
	return nil
}

// Summary returns the per-category totals of ownerID.
func (s *ExpenseService) Summary(ctx context.Context, ownerID int64) ([]insights.CategoryTotal, error) {
	expenses, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return insights.Summarize(expenses), nil
}

// Insights computes the insight report of ownerID. Concurrent calls for the
// same owner share a single fetch and computation, which outlives the
// cancellation of whichever caller started it.
func (s *ExpenseService) Insights(ctx context.Context, ownerID int64) (insights.Report, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.insightCalls.Do(strconv.FormatInt(ownerID, 10), func() (any, error) {
		expenses, err := s.List(shared, ownerID)
		if err != nil {
			return nil, err
		}
		return insights.Compute(expenses), nil
	})
	if err != nil {
		return insights.Report{}, err
	}
	return v.(insights.Report), nil
}

// Dashboard returns the expenses of ownerID together with their report, both
// derived from one read.
func (s *ExpenseService) Dashboard(ctx context.Context, ownerID int64) ([]models.Expense, insights.Report, error) {
	expenses, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, insights.Report{}, err
	}
	return expenses, insights.Compute(expenses), nil
}

// Month returns the expenses of ownerID whose UTC date falls in the given
// calendar month, and their report.
func (s *ExpenseService) Month(ctx context.Context, ownerID int64, year int, month time.Month) ([]models.Expense, insights.Report, error) {
	all, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, insights.Report{}, err
	}

	var inMonth []models.Expense
	for _, e := range all {
		d := e.Date.UTC()
		if d.Year() == year && d.Month() == month {
			inMonth = append(inMonth, e)
		}
	}
	return inMonth, insights.Compute(inMonth), nil
}

func (s *ExpenseService) categorize(ctx context.Context, e *models.Expense) {
	cat, keyword := s.categorizer.Match(e.Description)
	e.Category = cat
	slog.DebugContext(ctx, "Categorized expense",
		"description", e.Description,
		"category", cat,
		"keyword", keyword)
}

func (s *ExpenseService) publish(ctx context.Context, t events.Type, e models.Expense) {
	if err := s.publisher.Publish(ctx, events.NewEvent(t, e)); err != nil {
		// The write is committed; consumers miss this event.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", t,
			"expense_id", e.ID,
			"error", err)
	}
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.DefaultCurrency
	}
	return code
}
