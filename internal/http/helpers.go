package http

import (
	"fmt"
	"html/template"
	"strings"

	"outlay/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// barWidth scales part against max into a rounded percentage, keeping tiny
// non-zero values visible.
func barWidth(part, max core.Money) int {
	if max.Cents <= 0 || part.Cents <= 0 {
		return 0
	}
	width := int((part.Cents*100 + max.Cents/2) / max.Cents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// expenseRow is what the expense-row partial renders.
type expenseRow struct {
	Expense  core.Expense
	Currency core.Currency
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": core.FormatMoney,
		"row": func(e core.Expense, c core.Currency) expenseRow {
			return expenseRow{Expense: e, Currency: c}
		},
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f*100)
		},
		"width": func(f float64) int {
			w := int(f*100 + 0.5)
			if w > 100 {
				return 100
			}
			return w
		},
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
		"dayLabel": func(d core.Date) string {
			return d.Format("Monday, 02 January 2006")
		},
	}
}
