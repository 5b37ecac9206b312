package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/boristopalov/gridnav/pkg/display"
	"github.com/spf13/cobra"
)

func newAutoRunCmd(cfg *config.Config) *cobra.Command {
	var (
		policy     string
		continuous bool
	)
	cmd := &cobra.Command{
		Use:   "autorun",
		Short: "Let the policy drive the agent until the episode ends or the run is interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			printer := display.NewPrinter(100*time.Millisecond, display.WithOutput(cmd.OutOrStdout()))
			a, err := newApp(ctx, cfg, appOptions{
				policy:     policy,
				continuous: continuous,
				observer:   printer.Update,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			printer.Update(a.session.Snapshot())
			printer.Start(ctx)
			defer printer.Stop()

			if err := a.scheduler.Enable(ctx); err != nil {
				return err
			}
			if err := a.scheduler.Wait(); err != nil {
				return fmt.Errorf("auto-run stopped: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", policyRemote, "policy driving the agent: remote, openai or gemini")
	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep running across episodes until interrupted")
	cmd.Flags().DurationVar(&cfg.AutoRun.Interval, "interval", cfg.AutoRun.Interval, "delay between steps")
	return cmd
}
