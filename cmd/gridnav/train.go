package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/spf13/cobra"
)

func newTrainCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a batch of training episodes on the policy service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.trainer.Train(ctx, cfg.Training.Episodes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Training.Episodes, "episodes", cfg.Training.Episodes, "number of episodes to train")
	return cmd
}
