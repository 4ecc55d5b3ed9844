// Package navigation names the four top-level destinations of the app and
// maps them to and from URL paths.
package navigation

import (
	"strconv"
	"strings"
)

// Destination is one of Home, ExpenseForm, ExpenseList or Settings.
type Destination interface {
	Route() string
	Title() string
	tab() Tab
}

// Tab identifies a bottom bar entry.
type Tab int

const (
	TabHome Tab = iota
	TabAdd
	TabList
	TabSettings
)

type (
	Home struct{}

	// ExpenseForm edits the expense with ID when HasID is set and creates a
	// new one otherwise.
	ExpenseForm struct {
		ID    int64
		HasID bool
	}

	ExpenseList struct{}

	Settings struct{}
)

// NewExpense is the create-mode form.
func NewExpense() ExpenseForm { return ExpenseForm{} }

// EditExpense is the edit-mode form for id.
func EditExpense(id int64) ExpenseForm { return ExpenseForm{ID: id, HasID: true} }

func (Home) Route() string        { return "/" }
func (ExpenseList) Route() string { return "/expenses" }
func (Settings) Route() string    { return "/settings" }

func (f ExpenseForm) Route() string {
	if f.HasID {
		return "/expenses/" + strconv.FormatInt(f.ID, 10) + "/edit"
	}
	return "/expenses/new"
}

func (Home) Title() string        { return "Summary" }
func (ExpenseList) Title() string { return "Expenses" }
func (Settings) Title() string    { return "Settings" }

func (f ExpenseForm) Title() string {
	if f.HasID {
		return "Edit expense"
	}
	return "Add expense"
}

func (Home) tab() Tab        { return TabHome }
func (ExpenseForm) tab() Tab { return TabAdd }
func (ExpenseList) tab() Tab { return TabList }
func (Settings) tab() Tab    { return TabSettings }

// Parse maps a request path back to its destination.
func Parse(path string) (Destination, bool) {
	path = strings.TrimSuffix(path, "/")
	switch path {
	case "":
		return Home{}, true
	case "/expenses":
		return ExpenseList{}, true
	case "/expenses/new":
		return NewExpense(), true
	case "/settings":
		return Settings{}, true
	}
	rest, ok := strings.CutPrefix(path, "/expenses/")
	if !ok {
		return nil, false
	}
	idPart, ok := strings.CutSuffix(rest, "/edit")
	if !ok {
		return nil, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return EditExpense(id), true
}

// Item is one entry in the bottom navigation bar.
type Item struct {
	Label  string
	Icon   string
	Href   string
	Active bool
}

// BottomBar lists the four destinations with the one containing active
// highlighted. A nil active highlights nothing.
func BottomBar(active Destination) []Item {
	items := []struct {
		tab   Tab
		dest  Destination
		label string
		icon  string
	}{
		{TabHome, Home{}, "Home", "home"},
		{TabAdd, NewExpense(), "Add", "add"},
		{TabList, ExpenseList{}, "List", "list"},
		{TabSettings, Settings{}, "Settings", "settings"},
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{
			Label:  it.label,
			Icon:   it.icon,
			Href:   it.dest.Route(),
			Active: active != nil && active.tab() == it.tab,
		}
	}
	return out
}
