// Package memory is an in-process Repository used for tests and for running
// without a database file.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"outlay/internal/core"
	"outlay/internal/store"
)

type Store struct {
	mu     sync.Mutex
	cats   []core.Category
	items  map[int64]core.Expense
	nextID int64
}

var _ store.Repository = (*Store)(nil)

// New returns a store holding the given categories. Duplicate IDs and blank
// names are dropped.
func New(cats []core.Category) *Store {
	return &Store{cats: dedupe(cats), items: make(map[int64]core.Expense), nextID: 1}
}

// NewSeeded returns a store with the default categories.
func NewSeeded() *Store {
	return New(core.DefaultCategories())
}

// NewFromFile seeds categories from a text file with one "Name,#RRGGBB"
// entry per line. Blank lines and lines starting with # are ignored. A
// missing or empty file falls back to the default categories.
func NewFromFile(path string) *Store {
	cats := readCategories(path)
	if len(cats) == 0 {
		cats = core.DefaultCategories()
	}
	return New(cats)
}

// NewFromDir looks for seed_categories.txt inside dir.
func NewFromDir(dir string) *Store {
	return NewFromFile(filepath.Join(dir, "seed_categories.txt"))
}

func (s *Store) Close() error { return nil }

func (s *Store) AddCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(c.ID) >= 0 {
		return core.Category{}, fmt.Errorf("add category: id %s already exists", c.ID)
	}
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(c.ID)
	if i < 0 {
		return store.ErrCategoryNotFound
	}
	c.Name = strings.TrimSpace(c.Name)
	s.cats[i] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return nil
	}
	s.cats = append(s.cats[:i], s.cats[i+1:]...)
	for eid, e := range s.items {
		if e.Category.ID == id {
			delete(s.items, eid)
		}
	}
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return core.Category{}, false, nil
	}
	return s.cats[i], true, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedCategories(), nil
}

func (s *Store) CountExpensesForCategory(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.items {
		if e.Category.ID == id {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(e.Category.ID)
	if i < 0 {
		return core.Expense{}, store.ErrCategoryNotFound
	}
	if e.ID == 0 {
		e.ID = s.nextID
	} else if _, exists := s.items[e.ID]; exists {
		return core.Expense{}, store.ErrDuplicateExpense
	}
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	e.Category = s.cats[i]
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; !ok {
		return store.ErrExpenseNotFound
	}
	i := s.categoryIndex(e.Category.ID)
	if i < 0 {
		return store.ErrCategoryNotFound
	}
	e.Category = s.cats[i]
	s.items[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *Store) DeleteAllExpenses(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[int64]core.Expense)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, false, nil
	}
	return s.withCategory(e), true, nil
}

func (s *Store) ListExpenses(_ context.Context, f store.ListFilter) ([]core.Expense, error) {
	s.mu.Lock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if f.Range.Contains(e.Date) {
			out = append(out, s.withCategory(e))
		}
	}
	s.mu.Unlock()

	core.SortExpenses(out)
	out = core.FilterByDescription(out, f.Search)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CategoryTotals(_ context.Context, rng core.DateRange) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expenses := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		expenses = append(expenses, e)
	}
	return core.Aggregate(expenses, s.sortedCategories(), rng), nil
}

// withCategory refreshes the embedded category so renames show up on reads.
func (s *Store) withCategory(e core.Expense) core.Expense {
	if i := s.categoryIndex(e.Category.ID); i >= 0 {
		e.Category = s.cats[i]
	}
	return e
}

func (s *Store) categoryIndex(id string) int {
	for i, c := range s.cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sortedCategories() []core.Category {
	out := append([]core.Category(nil), s.cats...)
	// matches ORDER BY name, id in SQLite
	sort.Slice(out, func(i, j int) bool { return categoryLess(out[i], out[j]) })
	return out
}

func categoryLess(a, b core.Category) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, hex, _ := strings.Cut(line, ",")
		c := core.Category{Name: strings.TrimSpace(name), Color: core.DefaultCategoryColor}
		if col, err := core.ParseColor(hex); err == nil {
			c.Color = col
		}
		c.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(c.Name))).String()
		out = append(out, c)
	}
	return dedupe(out)
}

func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || c.ID == "" {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	// Preserve input order; listing sorts by name.
	return out
}
