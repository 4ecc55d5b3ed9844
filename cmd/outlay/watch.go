package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"outlay/internal/amqp"
	"outlay/internal/backend"
	"outlay/internal/cli"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print change events as other processes publish them",
		Long:  `Follow the AMQP change queue and print every event until interrupted. Requires AMQP_URL.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AMQPURL == "" {
				return backend.ErrNoAMQP
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				if res.AMQP == nil {
					return fmt.Errorf("connect to %s: broker unavailable", a.cfg.AMQPExchange)
				}
				ctx, stop := context.WithCancel(ctx)
				defer stop()
				ctx, done := cli.GracefulShutdown(ctx, a.logger, 5*time.Second, nil)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.SubtleStyle.Render("Watching "+a.cfg.AMQPExchange+" (Ctrl-C to stop)"))

				err := res.AMQP.ConsumeChanges(ctx, func(_ context.Context, e amqp.ChangeEvent) error {
					fmt.Fprintf(out, "%s  %s %s\n",
						cli.SubtleStyle.Render(e.Timestamp.Local().Format(time.TimeOnly)),
						cli.TitleStyle.Render(e.RoutingKey()),
						e.ID)
					return nil
				})
				stop()
				<-done
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
