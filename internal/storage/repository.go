package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"outlay/internal/core"
	"outlay/internal/store"
)

const expenseView = "expense_with_category"

type SQLiteRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

var _ store.Repository = (*SQLiteRepository)(nil)

type categoryRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Color int64  `db:"color"`
}

type expenseRow struct {
	ID            int64  `db:"id"`
	Description   string `db:"description"`
	AmountCents   int64  `db:"amount_cents"`
	DateEpochDay  int64  `db:"date_epoch_day"`
	CategoryID    string `db:"category_id"`
	CategoryName  string `db:"category_name"`
	CategoryColor int64  `db:"category_color"`
}

type totalRow struct {
	categoryRow
	Total int64 `db:"total"`
}

var expenseColumns = []string{
	"id", "description", "amount_cents", "date_epoch_day",
	"category_id", "category_name", "category_color",
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps the pragma and
	// avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already-open handle. The schema is assumed to exist.
func NewWithDB(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query, args, err := r.sb.Insert("categories").
		Columns("id", "name", "color").
		Values(c.ID, c.Name, int64(c.Color)).
		ToSql()
	if err != nil {
		return core.Category{}, fmt.Errorf("build insert category: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	query, args, err := r.sb.Update("categories").
		Set("name", strings.TrimSpace(c.Name)).
		Set("color", int64(c.Color)).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update category: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrCategoryNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("categories").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete category: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, bool, error) {
	query, args, err := r.sb.Select("id", "name", "color").
		From("categories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Category{}, false, fmt.Errorf("build get category: %w", err)
	}
	var row categoryRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, false, nil
		}
		return core.Category{}, false, fmt.Errorf("get category: %w", err)
	}
	return row.toCore(), true, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	query, args, err := r.sb.Select("id", "name", "color").
		From("categories").
		OrderBy("name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}
	var rows []categoryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) CountExpensesForCategory(ctx context.Context, id string) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("expenses").
		Where(squirrel.Eq{"category_id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count expenses: %w", err)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	ins := r.sb.Insert("expenses")
	if e.ID != 0 {
		ins = ins.Columns("id", "description", "amount_cents", "date_epoch_day", "category_id").
			Values(e.ID, e.Description, e.Amount.Cents, e.Date.EpochDay(), e.Category.ID)
	} else {
		ins = ins.Columns("description", "amount_cents", "date_epoch_day", "category_id").
			Values(e.Description, e.Amount.Cents, e.Date.EpochDay(), e.Category.ID)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return core.Expense{}, fmt.Errorf("build insert expense: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Expense{}, mapConstraint("insert expense", err)
	}
	if e.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return core.Expense{}, fmt.Errorf("read expense id: %w", err)
		}
		e.ID = id
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	saved, ok, err := r.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	if !ok {
		return e, nil
	}
	return saved, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	query, args, err := r.sb.Update("expenses").
		Set("description", e.Description).
		Set("amount_cents", e.Amount.Cents).
		Set("date_epoch_day", e.Date.EpochDay()).
		Set("category_id", e.Category.ID).
		Where(squirrel.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update expense: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint("update expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrExpenseNotFound
	}
	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("expenses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete expense: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllExpenses(ctx context.Context) error {
	query, args, err := r.sb.Delete("expenses").ToSql()
	if err != nil {
		return fmt.Errorf("build delete all expenses: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete all expenses: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "All expenses deleted from SQLite", "count", n)
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, bool, error) {
	query, args, err := r.sb.Select(expenseColumns...).
		From(expenseView).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("build get expense: %w", err)
	}
	var row expenseRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, false, nil
		}
		return core.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}
	return row.toCore(), true, nil
}

// ListExpenses filters by date range in SQL and by description in Go, since
// SQLite's LIKE only folds ASCII.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f store.ListFilter) ([]core.Expense, error) {
	sel := r.sb.Select(expenseColumns...).
		From(expenseView).
		OrderBy("date_epoch_day DESC", "id DESC")
	if !f.Range.IsAllTime() {
		sel = sel.Where(squirrel.GtOrEq{"date_epoch_day": f.Range.Start.EpochDay()}).
			Where(squirrel.LtOrEq{"date_epoch_day": f.Range.End.EpochDay()})
	}
	searching := strings.TrimSpace(f.Search) != ""
	if f.Limit > 0 && !searching {
		sel = sel.Limit(uint64(f.Limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expenses: %w", err)
	}
	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	out = core.FilterByDescription(out, f.Search)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context, rng core.DateRange) ([]core.CategoryTotal, error) {
	sel := r.sb.Select("c.id", "c.name", "c.color", "COALESCE(SUM(e.amount_cents), 0) AS total").
		From("categories c")
	if rng.IsAllTime() {
		sel = sel.LeftJoin("expenses e ON e.category_id = c.id")
	} else {
		sel = sel.LeftJoin("expenses e ON e.category_id = c.id AND e.date_epoch_day BETWEEN ? AND ?",
			rng.Start.EpochDay(), rng.End.EpochDay())
	}
	query, args, err := sel.GroupBy("c.id", "c.name", "c.color").
		OrderBy("c.name", "c.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category totals: %w", err)
	}
	var rows []totalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	out := make([]core.CategoryTotal, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryTotal{Category: row.toCore(), Total: core.Money{Cents: row.Total}}
	}
	return out, nil
}

func (row categoryRow) toCore() core.Category {
	return core.Category{ID: row.ID, Name: row.Name, Color: core.Color(uint32(row.Color))}
}

func (row expenseRow) toCore() core.Expense {
	return core.Expense{
		ID:          row.ID,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Date:        core.DateFromEpochDay(row.DateEpochDay),
		Category: core.Category{
			ID:    row.CategoryID,
			Name:  row.CategoryName,
			Color: core.Color(uint32(row.CategoryColor)),
		},
	}
}

// SQLite extended result codes for the constraint violations we translate.
const (
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func mapConstraint(op string, err error) error {
	code := 0
	var se *sqlite.Error
	if errors.As(err, &se) {
		code = se.Code()
	}
	msg := err.Error()
	switch {
	case code == sqliteConstraintForeignKey || strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", op, store.ErrCategoryNotFound)
	case code == sqliteConstraintPrimaryKey || code == sqliteConstraintUnique ||
		strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateExpense)
	}
	return fmt.Errorf("%s: %w", op, err)
}
