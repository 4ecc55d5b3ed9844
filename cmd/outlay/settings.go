package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"outlay/internal/backend"
	"outlay/internal/cli"
	"outlay/internal/core"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show theme, currency and monthly limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				p, err := res.Settings.Preferences(ctx)
				if err != nil {
					return err
				}
				cli.PrintPreferences(cmd.OutOrStdout(), p, res.Settings.Edition())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <theme|currency|limit> <value>",
		Short: "Change a preference",
		Example: `  outlay settings set theme dark
  outlay settings set currency EUR
  outlay settings set limit 500.75
  outlay settings set limit ""     # clear the limit`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"theme", "currency", "limit"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				var err error
				switch args[0] {
				case "theme":
					_, err = res.Settings.SetTheme(ctx, args[1])
					if errors.Is(err, core.ErrThemeRequiresPro) {
						return fmt.Errorf("the %s theme is only available in the pro edition", args[1])
					}
				case "currency":
					_, err = res.Settings.SetCurrency(ctx, args[1])
				case "limit":
					_, err = res.Settings.SetMonthlyLimit(ctx, args[1])
				default:
					return fmt.Errorf("unknown setting %q: want theme, currency or limit", args[0])
				}
				if err != nil {
					return err
				}
				p, err := res.Settings.Preferences(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("✓ Saved"))
				cli.PrintPreferences(cmd.OutOrStdout(), p, res.Settings.Edition())
				return nil
			})
		},
	})
	return cmd
}
