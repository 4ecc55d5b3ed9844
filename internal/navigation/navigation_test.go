package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutesRoundTrip(t *testing.T) {
	for _, d := range []Destination{Home{}, NewExpense(), EditExpense(101), ExpenseList{}, Settings{}} {
		got, ok := Parse(d.Route())
		require.True(t, ok, d.Route())
		assert.Equal(t, d, got)
	}
}

func TestExpenseFormModes(t *testing.T) {
	assert.Equal(t, "/expenses/new", NewExpense().Route())
	assert.Equal(t, "Add expense", NewExpense().Title())
	assert.Equal(t, "/expenses/101/edit", EditExpense(101).Route())
	assert.Equal(t, "Edit expense", EditExpense(101).Title())
}

func TestParseRejectsUnknownPaths(t *testing.T) {
	for _, p := range []string{"/nope", "/expenses/abc/edit", "/expenses/0/edit", "/expenses/12", "/expenses/-3/edit"} {
		_, ok := Parse(p)
		assert.False(t, ok, p)
	}
	d, ok := Parse("/settings/")
	require.True(t, ok)
	assert.Equal(t, Settings{}, d)
}

func TestBottomBar(t *testing.T) {
	items := BottomBar(EditExpense(7))
	require.Len(t, items, 4)
	labels := []string{}
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"Home", "Add", "List", "Settings"}, labels)
	assert.True(t, items[1].Active, "editing highlights the Add tab")
	assert.False(t, items[0].Active)
	assert.Equal(t, "/expenses/new", items[1].Href)

	for _, it := range BottomBar(nil) {
		assert.False(t, it.Active)
	}
}
