package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"outlay/internal/core"
)

var (
	comida     = core.Category{ID: "c1", Name: "Comida", Color: core.RGB(0xF4, 0x43, 0x36)}
	transporte = core.Category{ID: "c2", Name: "Transporte", Color: core.RGB(0x21, 0x96, 0xF3)}
)

func TestPrintTotals(t *testing.T) {
	var buf bytes.Buffer
	totals := []core.CategoryTotal{
		{Category: transporte, Total: core.Money{Cents: 275}},
		{Category: comida, Total: core.Money{Cents: 3550}},
	}
	PrintTotals(&buf, core.CurrentMonth(core.NewDate(2025, 3, 20)), totals, core.CurrencyUSD)

	out := buf.String()
	assert.Contains(t, out, "This month")
	assert.Contains(t, out, "$38.25")
	assert.Contains(t, out, "$35.50")
	assert.Contains(t, out, "$2.75")
	assert.Less(t, strings.Index(out, "Comida"), strings.Index(out, "Transporte"))
}

func TestPrintTotalsEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintTotals(&buf, core.AllTime(), []core.CategoryTotal{{Category: comida}}, core.CurrencyUSD)
	assert.Contains(t, buf.String(), "No expenses in this period.")
}

func TestPrintExpenses(t *testing.T) {
	var buf bytes.Buffer
	day := core.NewDate(2025, 3, 15)
	e := core.Expense{ID: 7, Description: "Café", Amount: core.Money{Cents: 350}, Date: day, Category: comida}
	PrintExpenses(&buf, core.GroupByDate([]core.Expense{e}), core.CurrencyEUR)

	out := buf.String()
	assert.Contains(t, out, "Sat 15 Mar 2025")
	assert.Contains(t, out, "Café")
	assert.Contains(t, out, "Comida")

	buf.Reset()
	PrintExpenses(&buf, nil, core.CurrencyUSD)
	assert.Contains(t, buf.String(), "No expenses found.")
}

func TestPrintPreferences(t *testing.T) {
	var buf bytes.Buffer
	p := core.DefaultPreferences()
	PrintPreferences(&buf, p, core.EditionStandard)
	assert.Contains(t, buf.String(), "not set")

	buf.Reset()
	p.MonthlyLimit = core.Money{Cents: 50075}
	PrintPreferences(&buf, p, core.EditionPro)
	assert.Contains(t, buf.String(), "$500.75")
	assert.Contains(t, buf.String(), "pro")
}

func TestPrintCategories(t *testing.T) {
	var buf bytes.Buffer
	PrintCategories(&buf, []core.Category{comida, transporte}, map[string]int{"c1": 3})
	out := buf.String()
	assert.Contains(t, out, "Comida")
	assert.Contains(t, out, "#F44336")
	assert.Contains(t, out, "3")
}

func TestBar(t *testing.T) {
	assert.Equal(t, 20, strings.Count(bar(1, 20), "█"))
	assert.Equal(t, 1, strings.Count(bar(0.001, 20), "█"))
	assert.Equal(t, 0, strings.Count(bar(0, 20), "█"))
}
