package http

import (
	"net/http"
	"strconv"

	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/navigation"
	"outlay/internal/services"
)

// dashboardRow is one category line with its bar width relative to the
// largest category.
type dashboardRow struct {
	Category core.Category
	Total    core.Money
	Share    float64
	Width    int
}

type dashboardView struct {
	services.Dashboard
	Rows       []dashboardRow
	RangeLabel string
	Filter     filterForm
	Empty      bool
}

// filterForm re-populates the range picker.
type filterForm struct {
	Kind  string
	Date  string
	Year  string
	Month string
	Start string
	End   string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := core.Today(s.now)
	q := r.URL.Query()
	rng := ParseDateRange(q, today)

	dash, err := s.expenses.Dashboard(ctx, rng)
	if err != nil {
		s.storageFailure(w, r, "Error loading summary", err, applog.OpRead)
		return
	}

	view := dashboardView{
		Dashboard:  dash,
		RangeLabel: rng.Label(),
		Empty:      dash.Total.IsZero(),
		Filter: filterForm{
			Kind:  q.Get("filter"),
			Date:  today.String(),
			Year:  strconv.Itoa(today.Year()),
			Month: strconv.Itoa(today.Month()),
			Start: q.Get("start"),
			End:   q.Get("end"),
		},
	}
	if v := q.Get("date"); v != "" {
		view.Filter.Date = v
	}
	if v := q.Get("year"); v != "" {
		view.Filter.Year = v
	}
	if v := q.Get("month"); v != "" {
		view.Filter.Month = v
	}

	var max core.Money
	for _, t := range dash.Ranked {
		if t.Total.Cents > max.Cents {
			max = t.Total
		}
	}
	for _, t := range dash.Ranked {
		view.Rows = append(view.Rows, dashboardRow{
			Category: t.Category,
			Total:    t.Total,
			Share:    t.Share(dash.Total),
			Width:    barWidth(t.Total, max),
		})
	}

	s.render(w, r, http.StatusOK, "dashboard.html", navigation.Home{}, view)
}
