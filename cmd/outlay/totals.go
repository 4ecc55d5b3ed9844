package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"outlay/internal/backend"
	"outlay/internal/cli"
	"outlay/internal/core"
)

// rangeFlags selects a date range the way the dashboard filter does.
type rangeFlags struct {
	day    string
	month  string
	year   int
	period string
	all    bool
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.day, "day", "", "a single day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.month, "month", "", "a month, YYYY-MM")
	cmd.Flags().IntVar(&f.year, "year", 0, "a calendar year")
	cmd.Flags().StringVar(&f.period, "period", "", "an inclusive period, YYYY-MM-DD:YYYY-MM-DD")
	cmd.Flags().BoolVar(&f.all, "all", false, "all time")
	cmd.MarkFlagsMutuallyExclusive("day", "month", "year", "period", "all")
}

// resolve returns the selected range, or fallback when no flag was given.
func (f rangeFlags) resolve(today core.Date, fallback core.DateRange) (core.DateRange, error) {
	switch {
	case f.all:
		return core.AllTime(), nil
	case f.day != "":
		d, err := core.ParseDate(f.day)
		if err != nil {
			return core.DateRange{}, err
		}
		return core.DayRange(d), nil
	case f.month != "":
		y, m, ok := strings.Cut(f.month, "-")
		year, err1 := strconv.Atoi(y)
		month, err2 := strconv.Atoi(m)
		if !ok || err1 != nil || err2 != nil || month < 1 || month > 12 {
			return core.DateRange{}, fmt.Errorf("month %q: want YYYY-MM", f.month)
		}
		if year == today.Year() && month == today.Month() {
			return core.CurrentMonth(today), nil
		}
		return core.MonthRange(year, month), nil
	case f.year != 0:
		return core.YearRange(f.year), nil
	case f.period != "":
		s, e, ok := strings.Cut(f.period, ":")
		if !ok {
			return core.DateRange{}, errors.New("period: want START:END")
		}
		start, err := core.ParseDate(s)
		if err != nil {
			return core.DateRange{}, err
		}
		end, err := core.ParseDate(e)
		if err != nil {
			return core.DateRange{}, err
		}
		return core.PeriodRange(start, end), nil
	}
	return fallback, nil
}

func newTotalsCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Show spending per category (default: this month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := core.Today(nil)
			rng, err := rf.resolve(today, core.CurrentMonth(today))
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				d, err := res.Expenses.Dashboard(ctx, rng)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				cli.PrintTotals(out, rng, d.Totals, d.Preferences.Currency)
				if d.Month.Exceeded {
					cli.PrintLimitWarning(out, d.Month, d.Preferences.Currency)
				}
				return nil
			})
		},
	}
	rf.register(cmd)
	return cmd
}
