package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/core"
	"outlay/internal/store"
)

func newMockRepo(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "sqlite")), mock
}

func TestListExpensesPropagatesQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("disk I/O error")
	mock.ExpectQuery(`SELECT .* FROM expense_with_category WHERE date_epoch_day >= \? AND date_epoch_day <= \? ORDER BY date_epoch_day DESC, id DESC`).
		WithArgs(core.NewDate(2025, 3, 1).EpochDay(), core.NewDate(2025, 3, 31).EpochDay()).
		WillReturnError(boom)

	_, err := repo.ListExpenses(context.Background(), store.ListFilter{Range: core.MonthRange(2025, 3)})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list expenses")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddExpenseMapsForeignKeyViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO expenses \(description,amount_cents,date_epoch_day,category_id\) VALUES \(\?,\?,\?,\?\)`).
		WillReturnError(errors.New("constraint failed: FOREIGN KEY constraint failed (787)"))

	_, err := repo.AddExpense(context.Background(), core.Expense{
		Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1), Category: core.Category{ID: "gone"},
	})
	require.ErrorIs(t, err, store.ErrCategoryNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpenseNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE expenses SET .* WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateExpense(context.Background(), core.Expense{
		ID: 7, Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1), Category: core.Category{ID: "c"},
	})
	require.ErrorIs(t, err, store.ErrExpenseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExpenseMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .* FROM expense_with_category WHERE id = \?`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(expenseColumns))

	_, ok, err := repo.GetExpense(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryTotalsScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT c.id, c.name, c.color, COALESCE\(SUM\(e.amount_cents\), 0\) AS total FROM categories c LEFT JOIN expenses e ON .* BETWEEN \? AND \? GROUP BY .* ORDER BY c.name, c.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color", "total"}).
			AddRow("c1", "Comida", int64(4294198070), int64(3550)).
			AddRow("c2", "Transporte", int64(4280391411), int64(275)))

	totals, err := repo.CategoryTotals(context.Background(), core.MonthRange(2025, 3))
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "35.50", totals[0].Total.String())
	assert.Equal(t, "#2196F3", totals[1].Category.Color.Hex())
	assert.Equal(t, "38.25", core.SumTotals(totals).String())
	require.NoError(t, mock.ExpectationsWereMet())
}
