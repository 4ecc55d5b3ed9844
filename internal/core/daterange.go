package core

import (
	"fmt"
	"time"
)

// RangeKind identifies how a DateRange was built; it drives the label shown
// on the dashboard.
type RangeKind string

const (
	RangeAllTime      RangeKind = "all"
	RangeDay          RangeKind = "day"
	RangeMonth        RangeKind = "month"
	RangeCurrentMonth RangeKind = "current-month"
	RangeYear         RangeKind = "year"
	RangePeriod       RangeKind = "period"
)

// DateRange is a closed interval of calendar dates. The zero value spans all
// time.
type DateRange struct {
	Kind  RangeKind
	Start Date
	End   Date
}

func AllTime() DateRange {
	return DateRange{Kind: RangeAllTime}
}

func DayRange(d Date) DateRange {
	return DateRange{Kind: RangeDay, Start: d, End: d}
}

func MonthRange(year, month int) DateRange {
	start := NewDate(year, month, 1)
	end := Date{Time: start.AddDate(0, 1, -1)}
	return DateRange{Kind: RangeMonth, Start: start, End: end}
}

// CurrentMonth is the month containing today.
func CurrentMonth(today Date) DateRange {
	r := MonthRange(today.Year(), today.Month())
	r.Kind = RangeCurrentMonth
	return r
}

func YearRange(year int) DateRange {
	return DateRange{Kind: RangeYear, Start: NewDate(year, 1, 1), End: NewDate(year, 12, 31)}
}

// PeriodRange spans start..end inclusive; reversed bounds are swapped.
func PeriodRange(start, end Date) DateRange {
	if end.Before(start) {
		start, end = end, start
	}
	return DateRange{Kind: RangePeriod, Start: start, End: end}
}

// IsAllTime reports whether the range is unbounded.
func (r DateRange) IsAllTime() bool {
	return r.Kind == RangeAllTime || r.Kind == "" || (r.Start.IsZero() && r.End.IsZero())
}

// Contains is inclusive at both ends.
func (r DateRange) Contains(d Date) bool {
	if r.IsAllTime() {
		return true
	}
	day := d.EpochDay()
	return day >= r.Start.EpochDay() && day <= r.End.EpochDay()
}

// Key identifies the range for caching.
func (r DateRange) Key() string {
	if r.IsAllTime() {
		return string(RangeAllTime)
	}
	return fmt.Sprintf("%d:%d", r.Start.EpochDay(), r.End.EpochDay())
}

// Label is the human description of the range.
func (r DateRange) Label() string {
	switch {
	case r.IsAllTime():
		return "All time"
	case r.Kind == RangeCurrentMonth:
		return "This month"
	case r.Kind == RangeDay:
		return r.Start.Format("02 January 2006")
	case r.Kind == RangeMonth:
		return r.Start.Format("January 2006")
	case r.Kind == RangeYear:
		return r.Start.Format("2006")
	default:
		return r.Start.Format("02/01/06") + " - " + r.End.Format("02/01/06")
	}
}

// Today returns the current calendar date according to now.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateOf(now())
}
