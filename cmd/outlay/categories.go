package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"outlay/internal/backend"
	"outlay/internal/cli"
	"outlay/internal/core"
	"outlay/internal/services"
)

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "c"},
		Short:   "Manage expense categories",
	}
	cmd.AddCommand(
		newCategoriesListCmd(a),
		newCategoriesAddCmd(a),
		newCategoriesRenameCmd(a),
		newCategoriesDeleteCmd(a),
	)
	return cmd
}

func newCategoriesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories and how many expenses use each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				cats, err := res.Expenses.ListCategories(ctx)
				if err != nil {
					return err
				}
				usage := make(map[string]int, len(cats))
				for _, c := range cats {
					if usage[c.ID], err = res.Expenses.CategoryUsage(ctx, c.ID); err != nil {
						return err
					}
				}
				cli.PrintCategories(cmd.OutOrStdout(), cats, usage)
				return nil
			})
		},
	}
}

func newCategoriesAddCmd(a *app) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := core.DefaultCategoryColor
			if color != "" {
				var err error
				if c, err = core.ParseColor(color); err != nil {
					return fmt.Errorf("color %q: must look like #RRGGBB", color)
				}
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				cat, err := res.Expenses.AddCategory(ctx, args[0], c)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(
					fmt.Sprintf("✓ Created category %q (ID: %s)", cat.Name, cat.ID)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "color as #RRGGBB")
	return cmd
}

func newCategoriesRenameCmd(a *app) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "rename <name-or-id> <new-name>",
		Short: "Rename a category or change its color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				cat, err := findCategory(ctx, res, args[0])
				if err != nil {
					return err
				}
				cat.Name = args[1]
				if color != "" {
					if cat.Color, err = core.ParseColor(color); err != nil {
						return fmt.Errorf("color %q: must look like #RRGGBB", color)
					}
				}
				if err := res.Expenses.UpdateCategory(ctx, cat); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(fmt.Sprintf("✓ Updated category %s", cat.ID)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "new color as #RRGGBB")
	return cmd
}

func newCategoriesDeleteCmd(a *app) *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete <name-or-id>",
		Short: "Delete a category",
		Long: `Delete a category. A category that still has expenses is kept unless
--cascade is given, which deletes those expenses too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				cat, err := findCategory(ctx, res, args[0])
				if err != nil {
					return err
				}
				policy := res.Expenses.DeletePolicy()
				if cascade {
					policy = services.DeleteCascade
				}
				err = res.Expenses.DeleteCategory(ctx, cat.ID, policy)
				var inUse *services.CategoryInUseError
				if errors.As(err, &inUse) {
					return fmt.Errorf("%w; rerun with --cascade to delete its expenses too", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(fmt.Sprintf("✓ Deleted category %q", cat.Name)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "also delete the category's expenses")
	return cmd
}
