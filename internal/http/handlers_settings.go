package http

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/navigation"
	"outlay/internal/services"
	"outlay/internal/store"
)

type categoryRow struct {
	Category core.Category
	Usage    int
}

type settingsView struct {
	Preferences  core.Preferences
	Edition      core.Edition
	Themes       []services.ThemeOption
	Currencies   []core.Currency
	LimitDisplay string
	LimitValue   string
	Categories   []categoryRow
	Cascade      bool
	Error        string
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prefs, err := s.settings.Preferences(ctx)
	if err != nil {
		s.storageFailure(w, r, "Error loading settings", err, applog.OpRead)
		return
	}
	cats, err := s.expenses.ListCategories(ctx)
	if err != nil {
		s.storageFailure(w, r, "Error loading categories", err, applog.OpList)
		return
	}

	view := settingsView{
		Preferences:  prefs,
		Edition:      s.settings.Edition(),
		Themes:       s.settings.Themes(),
		Currencies:   core.Currencies(),
		LimitDisplay: core.LimitDisplay(prefs),
		Cascade:      s.expenses.DeletePolicy() == services.DeleteCascade,
		Error:        r.URL.Query().Get("error"),
	}
	if !prefs.MonthlyLimit.IsZero() {
		view.LimitValue = prefs.MonthlyLimit.Decimal()
	}
	for _, c := range cats {
		n, err := s.expenses.CategoryUsage(ctx, c.ID)
		if err != nil {
			s.storageFailure(w, r, "Error loading categories", err, applog.OpList)
			return
		}
		view.Categories = append(view.Categories, categoryRow{Category: c, Usage: n})
	}

	s.render(w, r, http.StatusOK, "settings.html", navigation.Settings{}, view)
}

// settingsRejected answers invalid settings input.
func settingsRejected(w http.ResponseWriter, r *http.Request, msg string) {
	if isHTMX(r) {
		UnprocessableEntityError(msg).Write(w)
		return
	}
	http.Redirect(w, r, navigation.Settings{}.Route()+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	t, err := s.settings.SetTheme(r.Context(), r.PostForm.Get("theme"))
	switch {
	case errors.Is(err, core.ErrThemeRequiresPro):
		settingsRejected(w, r, "The dark theme is only available in the pro edition")
		return
	case services.IsValidation(err):
		settingsRejected(w, r, "Unknown theme")
		return
	case err != nil:
		s.storageFailure(w, r, "Error saving theme", err, applog.OpUpdate)
		return
	}
	// The theme changes the whole page, so htmx reloads it.
	b := NewHTMXResponse().
		TriggerSettingsChanged("theme", t.Label()).
		Header("HX-Refresh", "true")
	done(w, r, b, navigation.Settings{}.Route())
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	c, err := s.settings.SetCurrency(r.Context(), r.PostForm.Get("currency"))
	switch {
	case services.IsValidation(err):
		settingsRejected(w, r, "Unknown currency")
		return
	case err != nil:
		s.storageFailure(w, r, "Error saving currency", err, applog.OpUpdate)
		return
	}
	b := NewHTMXResponse().
		TriggerSettingsChanged("currency", c.Label()).
		TriggerSuccessNotification("Currency set to " + c.Label())
	done(w, r, b, navigation.Settings{}.Route())
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	_, err := s.settings.SetMonthlyLimit(ctx, r.PostForm.Get("limit"))
	switch {
	case services.IsValidation(err):
		settingsRejected(w, r, "Monthly limit must be a non-negative number")
		return
	case err != nil:
		s.storageFailure(w, r, "Error saving monthly limit", err, applog.OpUpdate)
		return
	}
	prefs, err := s.settings.Preferences(ctx)
	if err != nil {
		s.storageFailure(w, r, "Error loading settings", err, applog.OpRead)
		return
	}
	display := core.LimitDisplay(prefs)
	b := NewHTMXResponse().
		TriggerSettingsChanged("monthly_limit", display).
		BodyHTML(`<span id="limit-display">` + template.HTMLEscapeString(display) + `</span>`)
	done(w, r, b, navigation.Settings{}.Route())
}

func (s *Server) handleDeleteAllExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteAllExpenses(r.Context()); err != nil {
		s.storageFailure(w, r, "Error deleting expenses", err, applog.OpDelete)
		return
	}
	b := NewHTMXResponse().
		TriggerExpensesCleared().
		TriggerSuccessNotification("All expenses deleted")
	done(w, r, b, navigation.Settings{}.Route())
}

// handleCategoryOptions renders the <option> list used by the expense form.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	cats, err := s.expenses.ListCategories(r.Context())
	if err != nil {
		s.storageFailure(w, r, "Error loading categories", err, applog.OpList)
		return
	}
	s.renderPartial(w, r, "expense_form.html", "category-options", expenseFormView{
		Form:       ExpenseForm{CategoryID: r.URL.Query().Get("selected")},
		Categories: cats,
	})
}

func parseCategoryForm(r *http.Request) (string, core.Color, error) {
	name := sanitizeInput(r.PostForm.Get("name"))
	if name == "" {
		return "", 0, core.ErrEmptyCategoryName
	}
	color := core.DefaultCategoryColor
	if v := r.PostForm.Get("color"); v != "" {
		c, err := core.ParseColor(v)
		if err != nil {
			return "", 0, err
		}
		color = c
	}
	return name, color, nil
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	name, color, err := parseCategoryForm(r)
	if err != nil {
		settingsRejected(w, r, validationMessage(err))
		return
	}
	c, err := s.expenses.AddCategory(ctx, name, color)
	if err != nil {
		if services.IsValidation(err) {
			settingsRejected(w, r, validationMessage(err))
			return
		}
		s.storageFailure(w, r, "Error saving category", err, applog.OpCreate)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Category created via web", applog.FieldCategoryID, c.ID, "name", c.Name)
	b := NewHTMXResponse().
		TriggerCategoriesChanged().
		TriggerSuccessNotification("Category " + c.Name + " added")
	done(w, r, b, navigation.Settings{}.Route())
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	name, color, err := parseCategoryForm(r)
	if err != nil {
		settingsRejected(w, r, validationMessage(err))
		return
	}
	id := r.PathValue("id")
	if r.PostForm.Get("color") == "" {
		// A rename keeps the current color.
		if current, ok, err := s.expenses.GetCategory(ctx, id); err == nil && ok {
			color = current.Color
		}
	}
	err = s.expenses.UpdateCategory(ctx, core.Category{ID: id, Name: name, Color: color})
	switch {
	case errors.Is(err, store.ErrCategoryNotFound):
		NotFoundError("Category not found").Write(w)
		return
	case services.IsValidation(err):
		settingsRejected(w, r, validationMessage(err))
		return
	case err != nil:
		s.storageFailure(w, r, "Error saving category", err, applog.OpUpdate)
		return
	}
	b := NewHTMXResponse().
		TriggerCategoriesChanged().
		TriggerSuccessNotification("Category updated")
	done(w, r, b, navigation.Settings{}.Route())
}

// handleDeleteCategory deletes with the configured policy, or cascades when
// the user confirmed with cascade=1.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var policy services.DeletePolicy
	if cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade")); cascade {
		policy = services.DeleteCascade
	}

	err := s.expenses.DeleteCategory(ctx, id, policy)
	var inUse *services.CategoryInUseError
	switch {
	case errors.As(err, &inUse):
		msg := "Category " + inUse.Name + " is used by " + strconv.Itoa(inUse.Count) + " expense(s)"
		if !isHTMX(r) {
			http.Redirect(w, r, navigation.Settings{}.Route()+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
		ConflictError(msg).
			Trigger("category:in-use", map[string]interface{}{"id": inUse.ID, "name": inUse.Name, "count": inUse.Count}).
			Write(w)
		return
	case err != nil:
		s.storageFailure(w, r, "Error deleting category", err, applog.OpDelete)
		return
	}
	b := NewHTMXResponse().
		TriggerCategoriesChanged().
		TriggerSuccessNotification("Category deleted")
	done(w, r, b, navigation.Settings{}.Route())
}
