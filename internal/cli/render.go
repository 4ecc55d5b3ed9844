package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"outlay/internal/core"
)

// PrintExpenses writes expenses grouped by day, newest first, the way the
// list screen shows them.
func PrintExpenses(w io.Writer, groups []core.DayGroup, currency core.Currency) {
	if len(groups) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No expenses found."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t\t\t%s\n",
			TitleStyle.Render(g.Date.Format("Mon 02 Jan 2006")),
			AmountStyle.Render(core.FormatMoney(g.Total, currency)))
		for _, e := range g.Expenses {
			fmt.Fprintf(tw, "  %s\t%s\t%s %s\t%s\n",
				strconv.FormatInt(e.ID, 10),
				e.Description,
				Swatch(e.Category.Color.Hex()),
				e.Category.Name,
				core.FormatMoney(e.Amount, currency))
		}
	}
}

// PrintCategories writes one row per category with its usage count.
func PrintCategories(w io.Writer, cats []core.Category, usage map[string]int) {
	if len(cats) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No categories found. Use 'outlay categories add' to create one."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Color"),
		TableHeaderStyle.Render("Expenses"))
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%d\n", c.ID, c.Name, Swatch(c.Color.Hex()), c.Color.Hex(), usage[c.ID])
	}
}

// PrintTotals writes the per-category totals of a range, largest first, with
// a bar proportional to each category's share.
func PrintTotals(w io.Writer, rng core.DateRange, totals []core.CategoryTotal, currency core.Currency) {
	total := core.SumTotals(totals)
	fmt.Fprintf(w, "%s  %s\n", TitleStyle.Render(rng.Label()), AmountStyle.Render(core.FormatMoney(total, currency)))
	if total.IsZero() {
		fmt.Fprintln(w, SubtleStyle.Render("No expenses in this period."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	for _, t := range core.SortByTotalDesc(totals) {
		share := t.Share(total)
		fmt.Fprintf(tw, "%s %s\t%s\t%5.1f%%\t%s\n",
			Swatch(t.Category.Color.Hex()),
			t.Category.Name,
			core.FormatMoney(t.Total, currency),
			share*100,
			bar(share, 20))
	}
}

// PrintPreferences writes the current settings.
func PrintPreferences(w io.Writer, p core.Preferences, edition core.Edition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "%s\t%s\n", TableHeaderStyle.Render("Theme"), p.Theme.Label())
	fmt.Fprintf(tw, "%s\t%s\n", TableHeaderStyle.Render("Currency"), p.Currency.Label())
	fmt.Fprintf(tw, "%s\t%s\n", TableHeaderStyle.Render("Monthly limit"), core.LimitDisplay(p))
	fmt.Fprintf(tw, "%s\t%s\n", TableHeaderStyle.Render("Edition"), string(edition))
}

// PrintLimitWarning explains an exceeded monthly limit.
func PrintLimitWarning(w io.Writer, check core.LimitCheck, currency core.Currency) {
	fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf(
		"! Monthly limit exceeded: spent %s of %s (over by %s)",
		core.FormatMoney(check.Spent, currency),
		core.FormatMoney(check.Limit, currency),
		core.FormatMoney(check.Over, currency))))
}

func bar(share float64, width int) string {
	n := int(share*float64(width) + 0.5)
	if n < 1 && share > 0 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + SubtleStyle.Render(strings.Repeat("░", width-n))
}
