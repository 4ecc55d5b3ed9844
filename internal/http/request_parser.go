// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the expense form and the dashboard range filter.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"outlay/internal/core"
	"outlay/internal/services"
)

// ExpenseForm is the raw form as submitted, kept so the page can be
// re-rendered with the user's input after a validation error.
type ExpenseForm struct {
	ID          int64
	Description string
	Amount      string
	Date        string
	CategoryID  string
}

// ParseExpenseForm reads an expense form. A blank date means today. The
// returned error is one of the core validation errors.
func ParseExpenseForm(form url.Values, today core.Date) (ExpenseForm, services.ExpenseInput, error) {
	raw := ExpenseForm{
		Description: sanitizeInput(form.Get("description")),
		Amount:      strings.TrimSpace(form.Get("amount")),
		Date:        strings.TrimSpace(form.Get("date")),
		CategoryID:  sanitizeInput(form.Get("category_id")),
	}
	in := services.ExpenseInput{
		Description: raw.Description,
		CategoryID:  raw.CategoryID,
		Date:        today,
	}

	if raw.Description == "" {
		return raw, in, core.ErrEmptyDescription
	}
	cents, err := core.ParseDecimalToCents(raw.Amount)
	if err != nil {
		return raw, in, core.ErrInvalidAmount
	}
	in.Amount = core.Money{Cents: cents}
	if raw.Date != "" {
		d, err := core.ParseDate(raw.Date)
		if err != nil {
			return raw, in, err
		}
		in.Date = d
	}
	if raw.CategoryID == "" {
		return raw, in, core.ErrMissingCategory
	}
	return raw, in, nil
}

// FormFromExpense fills the form for editing.
func FormFromExpense(e core.Expense) ExpenseForm {
	return ExpenseForm{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.Decimal(),
		Date:        e.Date.String(),
		CategoryID:  e.Category.ID,
	}
}

// ParseDateRange maps the dashboard filter query to a range. Without a
// filter, or with unusable parameters, the current month is used.
//
//	filter=all
//	filter=day&date=2025-03-15
//	filter=month&year=2025&month=3
//	filter=year&year=2025
//	filter=period&start=2025-03-01&end=2025-03-15
func ParseDateRange(query url.Values, today core.Date) core.DateRange {
	switch strings.ToLower(strings.TrimSpace(query.Get("filter"))) {
	case "all":
		return core.AllTime()
	case "day":
		if d, err := core.ParseDate(query.Get("date")); err == nil {
			return core.DayRange(d)
		}
		return core.DayRange(today)
	case "month":
		year := intParam(query, "year", today.Year())
		month := intParam(query, "month", today.Month())
		if month < 1 || month > 12 {
			month = today.Month()
		}
		if year == today.Year() && month == today.Month() {
			return core.CurrentMonth(today)
		}
		return core.MonthRange(year, month)
	case "year":
		return core.YearRange(intParam(query, "year", today.Year()))
	case "period":
		start, err1 := core.ParseDate(query.Get("start"))
		end, err2 := core.ParseDate(query.Get("end"))
		if err1 == nil && err2 == nil {
			return core.PeriodRange(start, end)
		}
	}
	return core.CurrentMonth(today)
}

func intParam(query url.Values, key string, fallback int) int {
	if v := strings.TrimSpace(query.Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// parseExpenseID reads the {id} path value.
func parseExpenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
