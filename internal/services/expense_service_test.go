package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/preferences"
	"outlay/internal/store"
	"outlay/internal/store/memory"
)

var (
	comida     = core.Category{ID: "c1", Name: "Comida", Color: core.RGB(0xF4, 0x43, 0x36)}
	transporte = core.Category{ID: "c2", Name: "Transporte", Color: core.RGB(0x21, 0x96, 0xF3)}
	ocio       = core.Category{ID: "c3", Name: "Ocio", Color: core.RGB(0x9C, 0x27, 0xB0)}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, e amqp.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.RoutingKey()
	}
	return out
}

type fixture struct {
	svc   *ExpenseService
	repo  *memory.Store
	prefs *preferences.Memory
	pub   *recordingPublisher
}

// The clock is pinned to 2025-03-20 so "this month" is March 2025.
func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	repo := memory.New([]core.Category{comida, transporte, ocio})
	prefs := preferences.NewMemory()
	pub := &recordingPublisher{}
	clock := func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) }
	all := append([]Option{WithPublisher(pub), WithClock(clock)}, opts...)
	return fixture{svc: NewExpenseService(repo, prefs, all...), repo: repo, prefs: prefs, pub: pub}
}

func input(desc string, cents int64, d core.Date, c core.Category) ExpenseInput {
	return ExpenseInput{Description: desc, Amount: core.Money{Cents: cents}, Date: d, CategoryID: c.ID}
}

func TestSaveExpenseCreatesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SaveExpense(ctx, input("  Café  ", 350, core.NewDate(2025, 3, 9), ocio))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotZero(t, res.Expense.ID)
	assert.Equal(t, "Café", res.Expense.Description)
	assert.Equal(t, ocio, res.Expense.Category)
	assert.False(t, res.Limit.Checked)

	list, err := f.svc.ListExpenses(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Café", list[0].Description)
	assert.Equal(t, "3.50", list[0].Amount.String())

	assert.Equal(t, []string{"expense.created"}, f.pub.keys())
}

func TestSaveExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []ExpenseInput{
		input("   ", 100, core.NewDate(2025, 3, 1), comida),
		input("x", 0, core.NewDate(2025, 3, 1), comida),
		input("x", 100, core.Date{}, comida),
		{Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 3, 1)},
	}
	for i, in := range cases {
		_, err := f.svc.SaveExpense(ctx, in)
		require.Error(t, err, "case %d", i)
		assert.True(t, IsValidation(err), "case %d: %v", i, err)
	}

	_, err := f.svc.SaveExpense(ctx, input("x", 100, core.NewDate(2025, 3, 1), core.Category{ID: "missing"}))
	require.ErrorIs(t, err, store.ErrCategoryNotFound)
	assert.False(t, IsValidation(err))
	assert.Empty(t, f.pub.keys())
}

func TestEditKeepsID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.repo.AddExpense(ctx, core.Expense{
		ID: 101, Description: "Cena Tailandesa", Amount: core.Money{Cents: 4500},
		Date: core.NewDate(2025, 3, 1), Category: comida,
	})
	require.NoError(t, err)

	in := input("Cena Tailandesa Editada", 4500, core.NewDate(2025, 3, 1), comida)
	in.ID = 101
	res, err := f.svc.SaveExpense(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Created)

	got, ok, err := f.svc.GetExpense(ctx, 101)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(101), got.ID)
	assert.Equal(t, "Cena Tailandesa Editada", got.Description)

	in.ID = 555
	_, err = f.svc.SaveExpense(ctx, in)
	require.ErrorIs(t, err, store.ErrExpenseNotFound)
}

func TestMonthlyLimitIsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.prefs.SetMonthlyLimit(ctx, core.Money{Cents: 50075}))

	_, err := f.svc.SaveExpense(ctx, input("Renta", 45000, core.NewDate(2025, 3, 2), comida))
	require.NoError(t, err)
	// Outside the current month: not checked.
	res, err := f.svc.SaveExpense(ctx, input("Old", 90000, core.NewDate(2025, 2, 2), comida))
	require.NoError(t, err)
	assert.False(t, res.Limit.Checked)

	res, err = f.svc.SaveExpense(ctx, input("Cena", 6000, core.NewDate(2025, 3, 15), comida))
	require.NoError(t, err)
	assert.True(t, res.Limit.Checked)
	assert.True(t, res.Limit.Exceeded)
	assert.Equal(t, int64(925), res.Limit.Over.Cents)

	// The expense was stored anyway.
	list, err := f.svc.ListExpenses(ctx, "Cena")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMonthlyLimitExcludesEditedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.prefs.SetMonthlyLimit(ctx, core.Money{Cents: 10000}))

	res, err := f.svc.SaveExpense(ctx, input("Super", 9000, core.NewDate(2025, 3, 5), comida))
	require.NoError(t, err)
	assert.False(t, res.Limit.Exceeded)

	in := input("Super", 9500, core.NewDate(2025, 3, 5), comida)
	in.ID = res.Expense.ID
	res, err = f.svc.SaveExpense(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Limit.Checked)
	assert.False(t, res.Limit.Exceeded, "previous amount must not be counted twice")
	assert.Equal(t, int64(500), res.Limit.Remaining.Cents)
}

func TestCategoryTotalsScenarioAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := core.NewDate(2025, 3, 10)
	for _, in := range []ExpenseInput{
		input("Tacos", 1550, d, comida),
		input("Pizza", 2000, d, comida),
		input("Bus", 275, d, transporte),
	} {
		_, err := f.svc.SaveExpense(ctx, in)
		require.NoError(t, err)
	}

	totals, err := f.svc.CategoryTotals(ctx, core.DayRange(d))
	require.NoError(t, err)
	byName := map[string]string{}
	for _, tot := range totals {
		byName[tot.Category.Name] = tot.Total.String()
	}
	assert.Equal(t, map[string]string{"Comida": "35.50", "Transporte": "2.75", "Ocio": "0.00"}, byName)
	assert.Equal(t, "38.25", core.SumTotals(totals).String())

	// A mutation invalidates cached totals.
	_, err = f.svc.SaveExpense(ctx, input("Taxi", 1000, d, transporte))
	require.NoError(t, err)
	totals, err = f.svc.CategoryTotals(ctx, core.DayRange(d))
	require.NoError(t, err)
	assert.Equal(t, "48.25", core.SumTotals(totals).String())
}

// slowTotalsRepo holds its first CategoryTotals result until release closes.
type slowTotalsRepo struct {
	*memory.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *slowTotalsRepo) CategoryTotals(ctx context.Context, rng core.DateRange) ([]core.CategoryTotal, error) {
	totals, err := r.Store.CategoryTotals(ctx, rng)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.read)
		<-r.release
	}
	return totals, err
}

func TestCategoryTotalsDropsFillRacingAWrite(t *testing.T) {
	ctx := context.Background()
	repo := &slowTotalsRepo{
		Store:   memory.New([]core.Category{comida, transporte}),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewExpenseService(repo, preferences.NewMemory())

	done := make(chan struct{})
	go func() {
		defer close(done)
		totals, err := svc.CategoryTotals(ctx, core.AllTime())
		assert.NoError(t, err)
		assert.True(t, core.SumTotals(totals).IsZero())
	}()

	<-repo.read
	_, err := svc.SaveExpense(ctx, input("Tacos", 1550, core.NewDate(2025, 3, 10), comida))
	require.NoError(t, err)
	close(repo.release)
	<-done

	totals, err := svc.CategoryTotals(ctx, core.AllTime())
	require.NoError(t, err)
	assert.Equal(t, int64(1550), core.SumTotals(totals).Cents)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.prefs.SetMonthlyLimit(ctx, core.Money{Cents: 10000}))
	_, err := f.svc.SaveExpense(ctx, input("Tacos", 1550, core.NewDate(2025, 3, 10), comida))
	require.NoError(t, err)
	_, err = f.svc.SaveExpense(ctx, input("Bus", 275, core.NewDate(2025, 2, 10), transporte))
	require.NoError(t, err)

	d, err := f.svc.Dashboard(ctx, core.YearRange(2025))
	require.NoError(t, err)
	assert.Equal(t, "18.25", d.Total.String())
	assert.Equal(t, "Comida", d.Ranked[0].Category.Name)
	assert.Len(t, d.Recent, 2)
	assert.Equal(t, "15.50", d.MonthSpent.String())
	assert.True(t, d.Month.Checked)
	assert.Equal(t, int64(8450), d.Month.Remaining.Cents)
}

func TestDeleteExpenseIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SaveExpense(ctx, input("Bus", 275, core.NewDate(2025, 3, 1), transporte))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteExpense(ctx, res.Expense.ID))
	require.NoError(t, f.svc.DeleteExpense(ctx, res.Expense.ID))
	_, ok, err := f.svc.GetExpense(ctx, res.Expense.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteCategoryPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("block", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SaveExpense(ctx, input("Tacos", 1550, core.NewDate(2025, 3, 1), comida))
		require.NoError(t, err)

		err = f.svc.DeleteCategory(ctx, comida.ID, "")
		var inUse *CategoryInUseError
		require.True(t, errors.As(err, &inUse), "got %v", err)
		assert.Equal(t, 1, inUse.Count)
		assert.Contains(t, inUse.Error(), "Comida")

		_, ok, err := f.svc.GetCategory(ctx, comida.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		// Unused categories delete fine under block.
		require.NoError(t, f.svc.DeleteCategory(ctx, ocio.ID, DeleteBlock))
	})

	t.Run("cascade", func(t *testing.T) {
		f := newFixture(t, WithDeletePolicy(DeleteCascade))
		_, err := f.svc.SaveExpense(ctx, input("Tacos", 1550, core.NewDate(2025, 3, 1), comida))
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteCategory(ctx, comida.ID, ""))
		list, err := f.svc.ListExpenses(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Contains(t, f.pub.keys(), "category.deleted")
	})
}

func TestSubscriptionsFollowMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var sizes []int
	sub, err := f.svc.SubscribeExpenses(ctx, func(list []core.Expense) {
		mu.Lock()
		sizes = append(sizes, len(list))
		mu.Unlock()
	})
	require.NoError(t, err)

	var catCounts []int
	catSub, err := f.svc.SubscribeCategories(ctx, func(c []core.Category) { catCounts = append(catCounts, len(c)) })
	require.NoError(t, err)
	defer catSub.Cancel()

	res, err := f.svc.SaveExpense(ctx, input("Bus", 275, core.NewDate(2025, 3, 1), transporte))
	require.NoError(t, err)
	_, err = f.svc.AddCategory(ctx, "Ropa", core.RGB(0x3F, 0x51, 0xB5))
	require.NoError(t, err)
	sub.Cancel()
	require.NoError(t, f.svc.DeleteExpense(ctx, res.Expense.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 1}, sizes)
	assert.Equal(t, []int{3, 4}, catCounts)
}

func TestPublisherFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	_, err := f.svc.SaveExpense(context.Background(), input("Bus", 275, core.NewDate(2025, 3, 1), transporte))
	require.NoError(t, err)
}

func TestDeleteAllExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SaveExpense(ctx, input("Bus", 275, core.NewDate(2025, 3, 1), transporte))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteAllExpenses(ctx))

	list, err := f.svc.ListExpenses(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
	cats, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)
	assert.Equal(t, "expense.cleared", f.pub.keys()[1])
}

func TestExpensesByDateSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SaveExpense(ctx, input("Café Matutino", 350, core.NewDate(2025, 3, 2), ocio))
	require.NoError(t, err)
	_, err = f.svc.SaveExpense(ctx, input("Almuerzo de trabajo", 1200, core.NewDate(2025, 3, 3), comida))
	require.NoError(t, err)

	groups, err := f.svc.ExpensesByDate(ctx, "Café")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Expenses, 1)
	assert.Equal(t, "Café Matutino", groups[0].Expenses[0].Description)

	all, err := f.svc.ExpensesByDate(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-03-03", all[0].Date.String())
}

func TestCloseWithMemoryStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Close())
}
