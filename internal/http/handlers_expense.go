package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/navigation"
	"outlay/internal/services"
	"outlay/internal/store"
)

type expenseListView struct {
	Query    string
	Groups   []core.DayGroup
	Currency core.Currency
	Count    int
}

type expenseFormView struct {
	Form       ExpenseForm
	Editing    bool
	Action     string
	Categories []core.Category
	Error      string
	Today      string
}

func (s *Server) loadExpenseList(r *http.Request) (expenseListView, error) {
	ctx := r.Context()
	q := sanitizeInput(r.URL.Query().Get("q"))
	groups, err := s.expenses.ExpensesByDate(ctx, q)
	if err != nil {
		return expenseListView{}, err
	}
	prefs, err := s.settings.Preferences(ctx)
	if err != nil {
		return expenseListView{}, err
	}
	view := expenseListView{Query: q, Groups: groups, Currency: prefs.Currency}
	for _, g := range groups {
		view.Count += len(g.Expenses)
	}
	return view, nil
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadExpenseList(r)
	if err != nil {
		s.storageFailure(w, r, "Error loading expenses", err, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "expenses.html", navigation.ExpenseList{}, view)
}

// handleExpenseListPartial serves the list alone for live search and for
// refreshes pushed over /events.
func (s *Server) handleExpenseListPartial(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadExpenseList(r)
	if err != nil {
		s.storageFailure(w, r, "Error loading expenses", err, applog.OpList)
		return
	}
	s.renderPartial(w, r, "expenses.html", "expense-list", view)
}

func (s *Server) handleNewExpenseForm(w http.ResponseWriter, r *http.Request) {
	today := core.Today(s.now)
	view := expenseFormView{
		Form:   ExpenseForm{Date: today.String(), CategoryID: r.URL.Query().Get("category")},
		Action: "/expenses",
	}
	s.renderForm(w, r, http.StatusOK, navigation.NewExpense(), view)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseExpenseID(r)
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	e, found, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		s.storageFailure(w, r, "Error loading expense", err, applog.OpRead)
		return
	}
	if !found {
		NotFoundError("Expense not found").Write(w)
		return
	}
	view := expenseFormView{
		Form:    FormFromExpense(e),
		Editing: true,
		Action:  "/expenses/" + strconv.FormatInt(id, 10),
	}
	s.renderForm(w, r, http.StatusOK, navigation.EditExpense(id), view)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, dest navigation.ExpenseForm, view expenseFormView) {
	cats, err := s.expenses.ListCategories(r.Context())
	if err != nil {
		s.storageFailure(w, r, "Error loading categories", err, applog.OpList)
		return
	}
	view.Categories = cats
	view.Today = core.Today(s.now).String()
	s.render(w, r, status, "expense_form.html", dest, view)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.saveExpense(w, r, 0)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseExpenseID(r)
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	s.saveExpense(w, r, id)
}

func (s *Server) saveExpense(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	raw, in, err := ParseExpenseForm(r.PostForm, core.Today(s.now))
	raw.ID = id
	in.ID = id
	if err != nil {
		s.rejectExpense(w, r, raw, validationMessage(err))
		return
	}

	res, err := s.expenses.SaveExpense(ctx, in)
	switch {
	case err == nil:
	case services.IsValidation(err):
		s.rejectExpense(w, r, raw, validationMessage(err))
		return
	case errors.Is(err, store.ErrCategoryNotFound):
		s.rejectExpense(w, r, raw, "The selected category no longer exists")
		return
	case errors.Is(err, store.ErrExpenseNotFound):
		NotFoundError("Expense not found").Write(w)
		return
	default:
		s.storageFailure(w, r, "Error saving expense", err, applog.OpCreate)
		return
	}

	prefs, err := s.settings.Preferences(ctx)
	if err != nil {
		prefs = core.DefaultPreferences()
	}

	// A new expense returns to the summary, an edit returns to the list.
	location := navigation.Home{}.Route()
	if !res.Created {
		location = navigation.ExpenseList{}.Route()
	}

	e := res.Expense
	op := applog.OpUpdate
	if res.Created {
		op = applog.OpCreate
	}
	applog.FromContext(ctx).InfoContext(ctx, "Expense saved via web",
		applog.NewFields().WithExpense(e.ID, e.Description, e.Amount.Cents, e.Category.ID).WithOperation(op).ToSlice()...)

	msg := "Expense saved: " + e.Description + " " + core.FormatMoney(e.Amount, prefs.Currency)
	b := NewHTMXResponse().
		TriggerExpenseSaved(e.ID, res.Created, location).
		TriggerFormReset().
		TriggerSuccessNotification(msg)
	if res.Limit.Exceeded {
		b.TriggerLimitExceeded(res.Limit, prefs.Currency)
		location += "?notice=limit-exceeded"
	}
	done(w, r, b, location)
}

// rejectExpense answers a validation failure: htmx gets an inline error,
// plain posts get the form back with the user's input.
func (s *Server) rejectExpense(w http.ResponseWriter, r *http.Request, raw ExpenseForm, msg string) {
	if isHTMX(r) {
		UnprocessableEntityError(msg).Write(w)
		return
	}
	view := expenseFormView{Form: raw, Editing: raw.ID != 0, Action: "/expenses", Error: msg}
	dest := navigation.NewExpense()
	if raw.ID != 0 {
		view.Action = "/expenses/" + strconv.FormatInt(raw.ID, 10)
		dest = navigation.EditExpense(raw.ID)
	}
	s.renderForm(w, r, http.StatusUnprocessableEntity, dest, view)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return "Description is required"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description is too long (max " + strconv.Itoa(core.MaxDescriptionLength) + " characters)"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number"
	case errors.Is(err, core.ErrInvalidDate):
		return "Date is not valid"
	case errors.Is(err, core.ErrMissingCategory):
		return "Choose a category"
	case errors.Is(err, core.ErrEmptyCategoryName):
		return "Category name is required"
	case errors.Is(err, core.ErrInvalidColor):
		return "Color must look like #RRGGBB"
	}
	msg := err.Error()
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseExpenseID(r)
	if !ok {
		BadRequestError("Missing expense id").Write(w)
		return
	}
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		s.storageFailure(w, r, "Error deleting expense", err, applog.OpDelete)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Expense deleted via web", applog.FieldExpenseID, id)

	b := NewHTMXResponse().
		TriggerExpenseDeleted(id).
		TriggerSuccessNotification("Expense deleted")
	if r.Method == http.MethodDelete {
		b.Write(w)
		return
	}
	done(w, r, b, navigation.ExpenseList{}.Route())
}
