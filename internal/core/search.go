package core

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// DayGroup holds the expenses recorded on one date.
type DayGroup struct {
	Date     Date
	Expenses []Expense
	Total    Money
}

// FilterByDescription keeps expenses whose description contains query,
// ignoring case. A blank query keeps everything.
func FilterByDescription(expenses []Expense, query string) []Expense {
	query = strings.TrimSpace(query)
	if query == "" {
		return expenses
	}
	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if strings.Contains(fold.String(e.Description), needle) {
			out = append(out, e)
		}
	}
	return out
}

// GroupByDate buckets expenses per day, newest day first. Within a day the
// input order is preserved.
func GroupByDate(expenses []Expense) []DayGroup {
	index := make(map[int64]int)
	var groups []DayGroup
	for _, e := range expenses {
		day := e.Date.EpochDay()
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: e.Date})
		}
		groups[i].Expenses = append(groups[i].Expenses, e)
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})
	return groups
}

// SortExpenses orders newest first, then by descending id.
func SortExpenses(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenseLess(expenses[i], expenses[j])
	})
}

func expenseLess(a, b Expense) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}
