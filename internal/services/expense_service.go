package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/cache"
	"outlay/internal/core"
	"outlay/internal/observe"
	"outlay/internal/preferences"
	"outlay/internal/store"
)

// ExpenseService orchestrates expense and category operations: it validates
// input, writes through the repository, keeps subscribers up to date and
// announces changes on AMQP when a publisher is configured.
type ExpenseService struct {
	repo      store.Repository
	prefs     preferences.Store
	publisher amqp.Publisher
	totals    cache.Cache[[]core.CategoryTotal]
	policy    DeletePolicy

	// totalsMu orders cache fills against purges; generation counts purges.
	totalsMu   sync.Mutex
	generation uint64
	now       func() time.Time

	expenses   *observe.Feed[[]core.Expense]
	categories *observe.Feed[[]core.Category]
}

type Option func(*ExpenseService)

func WithPublisher(p amqp.Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithTotalsCache(c cache.Cache[[]core.CategoryTotal]) Option {
	return func(s *ExpenseService) { s.totals = c }
}

func WithDeletePolicy(p DeletePolicy) Option {
	return func(s *ExpenseService) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

// ExpenseInput is a create (ID == 0) or update request.
type ExpenseInput struct {
	ID          int64
	Description string
	Amount      core.Money
	Date        core.Date
	CategoryID  string
}

// SaveResult carries the stored expense and the monthly-limit advisory. The
// expense is saved whether or not the limit is exceeded.
type SaveResult struct {
	Expense core.Expense
	Created bool
	Limit   core.LimitCheck
}

// Dashboard is everything the home screen shows for one range.
type Dashboard struct {
	Range       core.DateRange
	Totals      []core.CategoryTotal // category order
	Ranked      []core.CategoryTotal // largest first
	Total       core.Money
	Recent      []core.Expense
	Preferences core.Preferences
	Month       core.LimitCheck // current calendar month against the limit
	MonthSpent  core.Money
}

func NewExpenseService(repo store.Repository, prefs preferences.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		repo:   repo,
		prefs:  prefs,
		totals: cache.NewLRUCache[[]core.CategoryTotal](64, 5*time.Minute),
		policy: DeleteBlock,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expenses = observe.NewLoaded(func(ctx context.Context) ([]core.Expense, error) {
		return s.repo.ListExpenses(ctx, store.ListFilter{})
	})
	s.categories = observe.NewLoaded(s.repo.ListCategories)
	return s
}

func (s *ExpenseService) DeletePolicy() DeletePolicy { return s.policy }

func (s *ExpenseService) today() core.Date { return core.Today(s.now) }

// SaveExpense creates or updates an expense and reports whether the current
// month's spending now exceeds the configured limit.
func (s *ExpenseService) SaveExpense(ctx context.Context, in ExpenseInput) (SaveResult, error) {
	e := core.Expense{
		ID:          in.ID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        in.Date,
		Category:    core.Category{ID: strings.TrimSpace(in.CategoryID)},
	}
	if err := e.Validate(); err != nil {
		return SaveResult{}, err
	}

	cat, ok, err := s.repo.GetCategory(ctx, e.Category.ID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("get category: %w", err)
	}
	if !ok {
		return SaveResult{}, store.ErrCategoryNotFound
	}
	e.Category = cat

	var previous *core.Expense
	if e.ID != 0 {
		prev, ok, err := s.repo.GetExpense(ctx, e.ID)
		if err != nil {
			return SaveResult{}, fmt.Errorf("get expense: %w", err)
		}
		if !ok {
			return SaveResult{}, store.ErrExpenseNotFound
		}
		previous = &prev
	}

	limit := s.checkLimit(ctx, e, previous)

	res := SaveResult{Limit: limit}
	if previous == nil {
		saved, err := s.repo.AddExpense(ctx, e)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to save expense", "component", "services", "operation", "add_expense", "error", err)
			return SaveResult{}, fmt.Errorf("save expense: %w", err)
		}
		res.Expense, res.Created = saved, true
	} else {
		if err := s.repo.UpdateExpense(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to update expense", "component", "services", "operation", "update_expense", "id", e.ID, "error", err)
			return SaveResult{}, fmt.Errorf("update expense: %w", err)
		}
		res.Expense = e
	}

	action := amqp.ActionUpdated
	if res.Created {
		action = amqp.ActionCreated
	}
	s.changed(ctx, amqp.EntityExpense, action, strconv.FormatInt(res.Expense.ID, 10))

	slog.InfoContext(ctx, "Expense saved",
		"id", res.Expense.ID,
		"created", res.Created,
		"amount", res.Expense.Amount.String(),
		"limit_exceeded", limit.Exceeded)
	return res, nil
}

// checkLimit is advisory: failures are logged and reported as "not checked".
func (s *ExpenseService) checkLimit(ctx context.Context, e core.Expense, previous *core.Expense) core.LimitCheck {
	prefs, err := s.prefs.Snapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Skipping monthly limit check", "error", err)
		return core.LimitCheck{}
	}
	if prefs.MonthlyLimit.IsZero() {
		return core.LimitCheck{}
	}
	month := core.CurrentMonth(s.today())
	if !month.Contains(e.Date) {
		return core.LimitCheck{}
	}
	totals, err := s.CategoryTotals(ctx, month)
	if err != nil {
		slog.WarnContext(ctx, "Skipping monthly limit check", "error", err)
		return core.LimitCheck{}
	}
	spent := core.SumTotals(totals)
	if previous != nil && month.Contains(previous.Date) {
		spent = spent.Sub(previous.Amount)
	}
	return core.CheckMonthlyLimit(spent, e.Amount, prefs.MonthlyLimit)
}

// DeleteExpense is a no-op for ids that do not exist.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete expense", "component", "services", "operation", "delete_expense", "id", id, "error", err)
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, amqp.ActionDeleted, strconv.FormatInt(id, 10))
	return nil
}

// DeleteAllExpenses clears every expense and keeps categories.
func (s *ExpenseService) DeleteAllExpenses(ctx context.Context) error {
	if err := s.repo.DeleteAllExpenses(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to delete all expenses", "component", "services", "operation", "delete_all", "error", err)
		return fmt.Errorf("delete all expenses: %w", err)
	}
	s.changed(ctx, amqp.EntityExpense, amqp.ActionCleared, "")
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, bool, error) {
	e, ok, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}
	return e, ok, nil
}

// ListExpenses returns expenses newest first, filtered by description.
func (s *ExpenseService) ListExpenses(ctx context.Context, search string) ([]core.Expense, error) {
	return s.ListExpensesInRange(ctx, core.AllTime(), search)
}

func (s *ExpenseService) ListExpensesInRange(ctx context.Context, rng core.DateRange, search string) ([]core.Expense, error) {
	out, err := s.repo.ListExpenses(ctx, store.ListFilter{Range: rng, Search: search})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// ExpensesByDate is ListExpenses grouped per day, newest day first.
func (s *ExpenseService) ExpensesByDate(ctx context.Context, search string) ([]core.DayGroup, error) {
	list, err := s.ListExpenses(ctx, search)
	if err != nil {
		return nil, err
	}
	return core.GroupByDate(list), nil
}

// CategoryTotals returns one total per category over rng. Results are cached
// until the next mutation.
func (s *ExpenseService) CategoryTotals(ctx context.Context, rng core.DateRange) ([]core.CategoryTotal, error) {
	if s.totals == nil {
		return s.loadTotals(ctx, rng)
	}
	key := rng.Key()
	if cached, ok := s.totals.Get(key); ok {
		return cached, nil
	}

	s.totalsMu.Lock()
	gen := s.generation
	s.totalsMu.Unlock()

	totals, err := s.loadTotals(ctx, rng)
	if err != nil {
		return nil, err
	}

	// A purge during the read means totals may predate a write.
	s.totalsMu.Lock()
	if gen == s.generation {
		s.totals.Set(key, totals)
	}
	s.totalsMu.Unlock()
	return totals, nil
}

func (s *ExpenseService) loadTotals(ctx context.Context, rng core.DateRange) ([]core.CategoryTotal, error) {
	totals, err := s.repo.CategoryTotals(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return totals, nil
}

// invalidateTotals drops cached totals and any fill still in flight.
func (s *ExpenseService) invalidateTotals() {
	if s.totals == nil {
		return
	}
	s.totalsMu.Lock()
	s.generation++
	s.totals.Purge()
	s.totalsMu.Unlock()
}

// Dashboard assembles the home screen for rng.
func (s *ExpenseService) Dashboard(ctx context.Context, rng core.DateRange) (Dashboard, error) {
	totals, err := s.CategoryTotals(ctx, rng)
	if err != nil {
		return Dashboard{}, err
	}
	prefs, err := s.prefs.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("read preferences: %w", err)
	}
	recent, err := s.repo.ListExpenses(ctx, store.ListFilter{Range: rng, Limit: 5})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list recent expenses: %w", err)
	}

	month := core.CurrentMonth(s.today())
	monthTotals := totals
	if rng.Key() != month.Key() {
		if monthTotals, err = s.CategoryTotals(ctx, month); err != nil {
			return Dashboard{}, err
		}
	}
	spent := core.SumTotals(monthTotals)

	return Dashboard{
		Range:       rng,
		Totals:      totals,
		Ranked:      core.SortByTotalDesc(totals),
		Total:       core.SumTotals(totals),
		Recent:      recent,
		Preferences: prefs,
		Month:       core.CheckMonthlyLimit(spent, core.Money{}, prefs.MonthlyLimit),
		MonthSpent:  spent,
	}, nil
}

func (s *ExpenseService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *ExpenseService) GetCategory(ctx context.Context, id string) (core.Category, bool, error) {
	c, ok, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, false, fmt.Errorf("get category: %w", err)
	}
	return c, ok, nil
}

func (s *ExpenseService) AddCategory(ctx context.Context, name string, color core.Color) (core.Category, error) {
	c, err := s.repo.AddCategory(ctx, core.Category{Name: strings.TrimSpace(name), Color: color})
	if err != nil {
		if errors.Is(err, core.ErrEmptyCategoryName) {
			return core.Category{}, err
		}
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	s.changed(ctx, amqp.EntityCategory, amqp.ActionCreated, c.ID)
	return c, nil
}

func (s *ExpenseService) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, core.ErrEmptyCategoryName) || errors.Is(err, store.ErrCategoryNotFound) {
			return err
		}
		return fmt.Errorf("update category: %w", err)
	}
	s.changed(ctx, amqp.EntityCategory, amqp.ActionUpdated, c.ID)
	return nil
}

// CategoryUsage counts the expenses that reference a category, for
// confirmation prompts.
func (s *ExpenseService) CategoryUsage(ctx context.Context, id string) (int, error) {
	n, err := s.repo.CountExpensesForCategory(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count category usage: %w", err)
	}
	return n, nil
}

// DeleteCategory applies policy, or the service default when policy is
// empty. Under DeleteBlock a referenced category yields *CategoryInUseError.
func (s *ExpenseService) DeleteCategory(ctx context.Context, id string, policy DeletePolicy) error {
	if policy == "" {
		policy = s.policy
	}
	cat, ok, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if !ok {
		return nil
	}
	if policy == DeleteBlock {
		n, err := s.CategoryUsage(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &CategoryInUseError{ID: id, Name: cat.Name, Count: n}
		}
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete category", "component", "services", "operation", "delete_category", "id", id, "error", err)
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "id", id, "name", cat.Name, "policy", policy)
	s.changed(ctx, amqp.EntityCategory, amqp.ActionDeleted, id)
	return nil
}

// SubscribeExpenses calls fn with every expense now and after each change.
func (s *ExpenseService) SubscribeExpenses(ctx context.Context, fn func([]core.Expense)) (*observe.Subscription, error) {
	return s.expenses.Subscribe(ctx, fn)
}

// SubscribeCategories calls fn with every category now and after each change.
func (s *ExpenseService) SubscribeCategories(ctx context.Context, fn func([]core.Category)) (*observe.Subscription, error) {
	return s.categories.Subscribe(ctx, fn)
}

// ExpenseFeed exposes the underlying feed for streaming adapters.
func (s *ExpenseService) ExpenseFeed() *observe.Feed[[]core.Expense] { return s.expenses }

// Refresh reloads feeds after a change made by another process.
func (s *ExpenseService) Refresh(ctx context.Context) {
	s.invalidateTotals()
	s.refreshFeeds(ctx, true)
}

func (s *ExpenseService) changed(ctx context.Context, entity amqp.Entity, action amqp.Action, id string) {
	s.invalidateTotals()
	// Deleting a category cascades to expenses, so both feeds may change.
	s.refreshFeeds(ctx, entity == amqp.EntityCategory)
	s.publish(ctx, amqp.NewChangeEvent(entity, action, id))
}

func (s *ExpenseService) refreshFeeds(ctx context.Context, categories bool) {
	if err := s.expenses.Refresh(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh expense subscribers", "error", err)
	}
	if categories {
		if err := s.categories.Refresh(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh category subscribers", "error", err)
		}
	}
}

func (s *ExpenseService) publish(ctx context.Context, e amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	// Don't fail the request - the change is already stored locally
	if err := s.publisher.PublishChange(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", e.Entity, "action", e.Action, "id", e.ID, "error", err)
	}
}

// Close closes storage and, if it supports it, the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
