package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/events"
	"spendwise/internal/models"
	"spendwise/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptr[T any](v T) *T { return &v }

// ExpenseServiceSuite runs the service against an in-memory database.
type ExpenseServiceSuite struct {
	suite.Suite
	db        *storage.DB
	ctx       context.Context
	publisher *recordingPublisher
	svc       *ExpenseService
	owner     *models.User
	other     *models.User
	now       time.Time
}

func (suite *ExpenseServiceSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
	suite.publisher = &recordingPublisher{}
	suite.now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	suite.svc = NewExpenseService(db,
		WithPublisher(suite.publisher),
		WithClock(func() time.Time { return suite.now }))

	suite.owner, err = db.CreateUser(suite.ctx, "owner@example.com", "Owner", "hash")
	require.NoError(suite.T(), err)
	suite.other, err = db.CreateUser(suite.ctx, "other@example.com", "Other", "hash")
	require.NoError(suite.T(), err)
}

func (suite *ExpenseServiceSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ExpenseServiceSuite) TestAdd_CategorizesAndDefaults() {
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount:      amount("12.50"),
		Description: "  Pizza with friends ",
		RawCategory: "Shopping",
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.Food, e.Category, "raw category must not influence categorization")
	assert.Equal(suite.T(), "Shopping", e.RawCategory)
	assert.Equal(suite.T(), "PKR", e.Currency)
	assert.Equal(suite.T(), "Pizza with friends", e.Description)
	assert.True(suite.T(), e.Date.Equal(suite.now))
	assert.Equal(suite.T(), []events.Type{events.ExpenseCreated}, suite.publisher.types())
}

func (suite *ExpenseServiceSuite) TestAdd_KeepsGivenDateAndCurrency() {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount:      amount("3"),
		Currency:    "usd",
		Description: "Bus fare",
		Date:        &date,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "USD", e.Currency)
	assert.True(suite.T(), e.Date.Equal(date))
	assert.Equal(suite.T(), models.Transportation, e.Category)
}

func (suite *ExpenseServiceSuite) TestAdd_Validation() {
	_, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{Description: "No amount"})
	assert.ErrorIs(suite.T(), err, ErrInvalidExpense)

	_, err = suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{Amount: amount("1"), Description: "   "})
	assert.ErrorIs(suite.T(), err, ErrInvalidExpense)

	assert.Empty(suite.T(), suite.publisher.types())
}

func (suite *ExpenseServiceSuite) TestAdd_PublishFailureDoesNotFail() {
	suite.publisher.err = errors.New("broker down")
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount: amount("5"), Description: "coffee",
	})
	require.NoError(suite.T(), err)

	list, err := suite.svc.List(suite.ctx, suite.owner.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), e.ID, list[0].ID)
}

func (suite *ExpenseServiceSuite) TestUpdate_RecategorizesFromDescription() {
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount: amount("20"), Description: "Dinner",
	})
	require.NoError(suite.T(), err)

	updated, err := suite.svc.Update(suite.ctx, suite.owner.ID, e.ID, models.ExpensePatch{
		Description: ptr("Hotel night"),
		Amount:      amount("80"),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Travel, updated.Category)
	assert.Equal(suite.T(), "80", updated.Amount.String())
	assert.Equal(suite.T(), "PKR", updated.Currency, "untouched fields are kept")

	stored, err := suite.db.GetExpense(suite.ctx, suite.owner.ID, e.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Travel, stored.Category)
	assert.Equal(suite.T(), "Hotel night", stored.Description)

	assert.Equal(suite.T(), []events.Type{events.ExpenseCreated, events.ExpenseUpdated}, suite.publisher.types())
}

func (suite *ExpenseServiceSuite) TestUpdate_NotOwned() {
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount: amount("20"), Description: "Dinner",
	})
	require.NoError(suite.T(), err)

	_, err = suite.svc.Update(suite.ctx, suite.other.ID, e.ID, models.ExpensePatch{Description: ptr("mine now")})
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)

	_, err = suite.svc.Update(suite.ctx, suite.owner.ID, 4242, models.ExpensePatch{})
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
}

func (suite *ExpenseServiceSuite) TestUpdate_EmptyDescription() {
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount: amount("20"), Description: "Dinner",
	})
	require.NoError(suite.T(), err)

	_, err = suite.svc.Update(suite.ctx, suite.owner.ID, e.ID, models.ExpensePatch{Description: ptr(" ")})
	assert.ErrorIs(suite.T(), err, ErrInvalidExpense)
}

func (suite *ExpenseServiceSuite) TestDelete() {
	e, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{
		Amount: amount("20"), Description: "Dinner",
	})
	require.NoError(suite.T(), err)

	assert.ErrorIs(suite.T(), suite.svc.Delete(suite.ctx, suite.other.ID, e.ID), storage.ErrNotFound)
	require.NoError(suite.T(), suite.svc.Delete(suite.ctx, suite.owner.ID, e.ID))

	list, err := suite.svc.List(suite.ctx, suite.owner.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
	assert.Equal(suite.T(), events.ExpenseDeleted, suite.publisher.types()[1])
}

func (suite *ExpenseServiceSuite) TestInsightsAndSummary() {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	_, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{Amount: amount("100"), Description: "Grocery run", Date: &jan})
	require.NoError(suite.T(), err)
	_, err = suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{Amount: amount("50"), Description: "Taxi", Date: &feb})
	require.NoError(suite.T(), err)
	_, err = suite.svc.Add(suite.ctx, suite.other.ID, models.ExpenseInput{Amount: amount("999"), Description: "Rent"})
	require.NoError(suite.T(), err)

	report, err := suite.svc.Insights(suite.ctx, suite.owner.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "150", report.TotalSpent.String())
	assert.Equal(suite.T(), models.Food, report.TopCategory)
	require.NotNil(suite.T(), report.MonthOverMonthGrowth)
	assert.Equal(suite.T(), "-50.0", *report.MonthOverMonthGrowth)

	summary, err := suite.svc.Summary(suite.ctx, suite.owner.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), summary, 2)
	assert.Equal(suite.T(), models.Food, summary[0].Category)
	assert.Equal(suite.T(), models.Transportation, summary[1].Category)

	expenses, month, err := suite.svc.Month(suite.ctx, suite.owner.ID, 2024, time.February)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), "50", month.TotalSpent.String())
	assert.Equal(suite.T(), models.Transportation, month.TopCategory)
}

func (suite *ExpenseServiceSuite) TestMonth_UsesUTCDate() {
	// 2024-03-01 02:00 at UTC+5 is still February in UTC.
	edge := time.Date(2024, 3, 1, 2, 0, 0, 0, time.FixedZone("", 5*60*60))
	_, err := suite.svc.Add(suite.ctx, suite.owner.ID, models.ExpenseInput{Amount: amount("40"), Description: "Groceries", Date: &edge})
	require.NoError(suite.T(), err)

	feb, report, err := suite.svc.Month(suite.ctx, suite.owner.ID, 2024, time.February)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), feb, 1)
	assert.Equal(suite.T(), "40", report.TotalSpent.String())

	mar, _, err := suite.svc.Month(suite.ctx, suite.owner.ID, 2024, time.March)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), mar)
}

func TestExpenseServiceSuite(t *testing.T) {
	suite.Run(t, new(ExpenseServiceSuite))
}

// blockingStore counts list calls and holds them until released.
type blockingStore struct {
	ExpenseStore
	calls   atomic.Int32
	release chan struct{}
}

func (s *blockingStore) ListExpensesByOwner(context.Context, int64) ([]models.Expense, error) {
	s.calls.Add(1)
	<-s.release
	return []models.Expense{{Amount: decimal.NewFromInt(10), Category: models.Food, Date: time.Now()}}, nil
}

func TestInsights_CoalescesConcurrentCalls(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	svc := NewExpenseService(store)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Insights(context.Background(), 1)
			assert.NoError(t, err)
			assert.Equal(t, "10", r.TotalSpent.String())
		}()
	}

	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.calls.Load())
}

type ctxCheckingStore struct{ ExpenseStore }

func (ctxCheckingStore) ListExpensesByOwner(ctx context.Context, _ int64) ([]models.Expense, error) {
	return nil, ctx.Err()
}

func TestInsights_IgnoresCallerCancellation(t *testing.T) {
	svc := NewExpenseService(ctxCheckingStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Insights(ctx, 1)
	assert.NoError(t, err)
}

type failingStore struct{ ExpenseStore }

func (failingStore) ListExpensesByOwner(context.Context, int64) ([]models.Expense, error) {
	return nil, errors.New("database is locked")
}

func TestInsights_StoreError(t *testing.T) {
	svc := NewExpenseService(failingStore{})
	_, err := svc.Insights(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list expenses")
}
