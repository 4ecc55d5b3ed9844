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
	"outlay/internal/services"
)

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "e"},
		Short:   "List, add, edit and delete expenses",
	}
	cmd.AddCommand(
		newExpensesListCmd(a),
		newExpensesAddCmd(a),
		newExpensesEditCmd(a),
		newExpensesDeleteCmd(a),
	)
	return cmd
}

func newExpensesListCmd(a *app) *cobra.Command {
	var search string
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := rf.resolve(core.Today(nil), core.AllTime())
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				items, err := res.Expenses.ListExpensesInRange(ctx, rng, search)
				if err != nil {
					return err
				}
				prefs, err := res.Settings.Preferences(ctx)
				if err != nil {
					return err
				}
				cli.PrintExpenses(cmd.OutOrStdout(), core.GroupByDate(items), prefs.Currency)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only expenses whose description contains this text")
	rf.register(cmd)
	return cmd
}

type expenseFlags struct {
	category string
	date     string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category name or ID")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date as YYYY-MM-DD (default today)")
}

func newExpensesAddCmd(a *app) *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record an expense",
		Example: `  outlay expenses add "Café" 3.50 --category Comida
  outlay expenses add Bus 2,75 -c Transporte -d 2025-03-16`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.category == "" {
				return errors.New("--category is required")
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				return saveExpense(ctx, cmd, res, 0, args[0], args[1], f)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newExpensesEditCmd(a *app) *cobra.Command {
	var f expenseFlags
	var description, amount string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an existing expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				current, ok, err := res.Expenses.GetExpense(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("expense %d not found", id)
				}
				if description == "" {
					description = current.Description
				}
				if amount == "" {
					amount = current.Amount.Decimal()
				}
				if f.category == "" {
					f.category = current.Category.ID
				}
				if f.date == "" {
					f.date = current.Date.String()
				}
				return saveExpense(ctx, cmd, res, id, description, amount, f)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	f.register(cmd)
	return cmd
}

func saveExpense(ctx context.Context, cmd *cobra.Command, res *backend.BackendResult, id int64, description, amount string, f expenseFlags) error {
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return fmt.Errorf("amount %q: must be a positive number", amount)
	}
	date := core.Today(nil)
	if f.date != "" {
		if date, err = core.ParseDate(f.date); err != nil {
			return err
		}
	}
	cat, err := findCategory(ctx, res, f.category)
	if err != nil {
		return err
	}

	saved, err := res.Expenses.SaveExpense(ctx, services.ExpenseInput{
		ID:          id,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		CategoryID:  cat.ID,
	})
	if err != nil {
		return err
	}

	prefs, err := res.Settings.Preferences(ctx)
	if err != nil {
		return err
	}
	verb := "Updated"
	if saved.Created {
		verb = "Added"
	}
	e := saved.Expense
	fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(fmt.Sprintf("✓ %s expense %d: %s %s (%s, %s)",
		verb, e.ID, e.Description, core.FormatMoney(e.Amount, prefs.Currency), e.Category.Name, e.Date)))
	if saved.Limit.Exceeded {
		cli.PrintLimitWarning(cmd.OutOrStdout(), saved.Limit, prefs.Currency)
	}
	return nil
}

func newExpensesDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete expenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("give at least one expense ID, or --all")
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				if all {
					if err := res.Expenses.DeleteAllExpenses(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("✓ Deleted every expense"))
					return nil
				}
				for _, id := range ids {
					if err := res.Expenses.DeleteExpense(ctx, id); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(fmt.Sprintf("✓ Deleted expense %d", id)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every expense (categories are kept)")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense ID %q", s)
	}
	return id, nil
}

// findCategory matches ref against category IDs first and then names,
// ignoring case.
func findCategory(ctx context.Context, res *backend.BackendResult, ref string) (core.Category, error) {
	ref = strings.TrimSpace(ref)
	cats, err := res.Expenses.ListCategories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range cats {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("no category named %q", ref)
}
