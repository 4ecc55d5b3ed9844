package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/core"
	"outlay/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seeded(t *testing.T, repo *SQLiteRepository, name string) core.Category {
	t.Helper()
	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("seed category %q missing", name)
	return core.Category{}
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 5)

	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Comida", "Hogar", "Ocio", "Salud", "Transporte"}, names)
	assert.Equal(t, "#F44336", seeded(t, repo, "Comida").Color.Hex())
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outlay.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ocio := seeded(t, repo, "Ocio")

	saved, err := repo.AddExpense(ctx, core.Expense{
		Description: "Café",
		Amount:      core.Money{Cents: 350},
		Date:        core.NewDate(2025, 3, 9),
		Category:    core.Category{ID: ocio.ID},
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	got, ok, err := repo.GetExpense(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Café", got.Description)
	assert.Equal(t, int64(350), got.Amount.Cents)
	assert.Equal(t, "2025-03-09", got.Date.String())
	assert.Equal(t, ocio, got.Category)
}

func TestAddExpenseUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.AddExpense(context.Background(), core.Expense{
		Description: "x",
		Amount:      core.Money{Cents: 1},
		Date:        core.NewDate(2025, 1, 1),
		Category:    core.Category{ID: "nope"},
	})
	require.ErrorIs(t, err, store.ErrCategoryNotFound)
}

func TestEditKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	comida := seeded(t, repo, "Comida")

	_, err := repo.AddExpense(ctx, core.Expense{
		ID:          101,
		Description: "Cena Tailandesa",
		Amount:      core.Money{Cents: 4500},
		Date:        core.NewDate(2025, 3, 1),
		Category:    comida,
	})
	require.NoError(t, err)

	_, err = repo.AddExpense(ctx, core.Expense{
		ID: 101, Description: "dup", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 3, 1), Category: comida,
	})
	require.ErrorIs(t, err, store.ErrDuplicateExpense)

	e, ok, err := repo.GetExpense(ctx, 101)
	require.NoError(t, err)
	require.True(t, ok)
	e.Description = "Cena Tailandesa Editada"
	require.NoError(t, repo.UpdateExpense(ctx, e))

	got, ok, err := repo.GetExpense(ctx, 101)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(101), got.ID)
	assert.Equal(t, "Cena Tailandesa Editada", got.Description)

	e.ID = 999
	require.ErrorIs(t, repo.UpdateExpense(ctx, e), store.ErrExpenseNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	saved, err := repo.AddExpense(ctx, core.Expense{
		Description: "Bus", Amount: core.Money{Cents: 275}, Date: core.NewDate(2025, 3, 1), Category: seeded(t, repo, "Transporte"),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteExpense(ctx, saved.ID))
	require.NoError(t, repo.DeleteExpense(ctx, saved.ID))
	_, ok, err := repo.GetExpense(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	custom, err := repo.AddCategory(ctx, core.Category{Name: "Ropa", Color: core.RGB(0x3F, 0x51, 0xB5)})
	require.NoError(t, err)
	require.NotEmpty(t, custom.ID)

	_, err = repo.AddExpense(ctx, core.Expense{
		Description: "Camisa", Amount: core.Money{Cents: 2000}, Date: core.NewDate(2025, 3, 1), Category: custom,
	})
	require.NoError(t, err)
	n, err := repo.CountExpensesForCategory(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteCategory(ctx, custom.ID))
	all, err := repo.ListExpenses(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteAllKeepsCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_, err := repo.AddExpense(ctx, core.Expense{
		Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1), Category: seeded(t, repo, "Hogar"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAllExpenses(ctx))

	all, err := repo.ListExpenses(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 5)
}

func TestListAndTotals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	comida := seeded(t, repo, "Comida")
	transporte := seeded(t, repo, "Transporte")
	d := core.NewDate(2025, 3, 10)
	for _, e := range []core.Expense{
		{Description: "Tacos", Amount: core.Money{Cents: 1550}, Date: d, Category: comida},
		{Description: "Pizza", Amount: core.Money{Cents: 2000}, Date: d, Category: comida},
		{Description: "Bus", Amount: core.Money{Cents: 275}, Date: d, Category: transporte},
		{Description: "Café Matutino", Amount: core.Money{Cents: 350}, Date: core.NewDate(2025, 3, 31), Category: comida},
		{Description: "Almuerzo de trabajo", Amount: core.Money{Cents: 1200}, Date: core.NewDate(2025, 4, 1), Category: comida},
	} {
		_, err := repo.AddExpense(ctx, e)
		require.NoError(t, err)
	}

	march, err := repo.ListExpenses(ctx, store.ListFilter{Range: core.MonthRange(2025, 3)})
	require.NoError(t, err)
	require.Len(t, march, 4)
	assert.Equal(t, "Café Matutino", march[0].Description)
	assert.Equal(t, "Bus", march[1].Description)

	found, err := repo.ListExpenses(ctx, store.ListFilter{Search: "CAFÉ"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Café Matutino", found[0].Description)

	limited, err := repo.ListExpenses(ctx, store.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	totals, err := repo.CategoryTotals(ctx, core.PeriodRange(d, core.NewDate(2025, 3, 31)))
	require.NoError(t, err)
	require.Len(t, totals, 5)
	byName := map[string]int64{}
	for _, tot := range totals {
		byName[tot.Category.Name] = tot.Total.Cents
	}
	assert.Equal(t, int64(3900), byName["Comida"])
	assert.Equal(t, int64(275), byName["Transporte"])
	assert.Equal(t, int64(0), byName["Salud"])
	assert.Equal(t, "41.75", core.SumTotals(totals).String())

	all, err := repo.CategoryTotals(ctx, core.AllTime())
	require.NoError(t, err)
	assert.Equal(t, int64(5375), core.SumTotals(all).Cents)
}
