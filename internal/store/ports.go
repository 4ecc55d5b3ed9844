// Package store defines the persistence ports shared by the in-memory and
// SQLite repositories.
package store

import (
	"context"
	"errors"

	"outlay/internal/core"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrDuplicateExpense = errors.New("expense id already exists")
)

// ListFilter narrows ListExpenses. The zero value lists everything.
type ListFilter struct {
	Range  core.DateRange
	Search string
	Limit  int // 0 means no limit
}

type (
	CategoryRepository interface {
		// AddCategory stores c. An empty ID is replaced with a fresh UUID.
		AddCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory removes the category and, by cascade, its expenses.
		DeleteCategory(ctx context.Context, id string) error
		GetCategory(ctx context.Context, id string) (core.Category, bool, error)
		// ListCategories returns every category ordered by name.
		ListCategories(ctx context.Context) ([]core.Category, error)
		CountExpensesForCategory(ctx context.Context, id string) (int, error)
	}

	ExpenseRepository interface {
		// AddExpense stores e and returns it with its assigned ID. A non-zero
		// ID is kept as given.
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		// DeleteExpense is a no-op for unknown ids.
		DeleteExpense(ctx context.Context, id int64) error
		// DeleteAllExpenses clears expenses and leaves categories intact.
		DeleteAllExpenses(ctx context.Context) error
		GetExpense(ctx context.Context, id int64) (core.Expense, bool, error)
		// ListExpenses orders by date descending, then id descending.
		ListExpenses(ctx context.Context, f ListFilter) ([]core.Expense, error)
		// CategoryTotals returns one entry per category, zero totals included.
		CategoryTotals(ctx context.Context, rng core.DateRange) ([]core.CategoryTotal, error)
	}

	// Repository is the full persistence contract.
	Repository interface {
		CategoryRepository
		ExpenseRepository
		Close() error
	}
)
