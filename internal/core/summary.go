package core

import "sort"

// CategoryTotal is the amount spent in one category over some range.
// It is derived on demand and never persisted.
type CategoryTotal struct {
	Category Category
	Total    Money
}

// Aggregate filters expenses by rng (inclusive) and sums them per category.
// The result has exactly one entry per category, in the order given,
// including categories nothing was spent in. Expenses whose category is not
// in categories are ignored.
func Aggregate(expenses []Expense, categories []Category, rng DateRange) []CategoryTotal {
	sums := make(map[string]int64, len(categories))
	for _, c := range categories {
		sums[c.ID] = 0
	}
	for _, e := range expenses {
		if !rng.Contains(e.Date) {
			continue
		}
		if _, ok := sums[e.Category.ID]; !ok {
			continue
		}
		sums[e.Category.ID] += e.Amount.Cents
	}
	out := make([]CategoryTotal, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryTotal{Category: c, Total: Money{Cents: sums[c.ID]}})
	}
	return out
}

// SumTotals adds every total together.
func SumTotals(totals []CategoryTotal) Money {
	var sum Money
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return sum
}

// SortByTotalDesc returns a copy ordered by total, largest first. Equal
// totals keep their relative order.
func SortByTotalDesc(totals []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, len(totals))
	copy(out, totals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// Share is the fraction of total represented by t, in [0,1].
func (t CategoryTotal) Share(total Money) float64 {
	if total.Cents <= 0 {
		return 0
	}
	return float64(t.Total.Cents) / float64(total.Cents)
}

// LimitCheck is the outcome of comparing a month's spending against the
// configured monthly limit.
type LimitCheck struct {
	Checked   bool  // false when no limit is configured
	Exceeded  bool
	Limit     Money
	Spent     Money // month total including the candidate amount
	Remaining Money // zero when exceeded
	Over      Money // zero when within the limit
}

// CheckMonthlyLimit compares monthTotal+candidate against limit. A zero
// limit means unset and disables the check.
func CheckMonthlyLimit(monthTotal, candidate, limit Money) LimitCheck {
	if limit.Cents <= 0 {
		return LimitCheck{}
	}
	spent := monthTotal.Add(candidate)
	res := LimitCheck{Checked: true, Limit: limit, Spent: spent}
	if spent.Cents > limit.Cents {
		res.Exceeded = true
		res.Over = spent.Sub(limit)
		return res
	}
	res.Remaining = limit.Sub(spent)
	return res
}

// Progress is the spent/limit ratio clamped to [0,1] for progress bars.
func (l LimitCheck) Progress() float64 {
	if !l.Checked || l.Limit.Cents <= 0 {
		return 0
	}
	p := float64(l.Spent.Cents) / float64(l.Limit.Cents)
	if p > 1 {
		return 1
	}
	return p
}
