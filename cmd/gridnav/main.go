package main

import (
	"log"
	"os"

	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:          "gridnav",
		Short:        "Gridnav drives an agent across a grid, by hand or with a remote policy service, and trains that policy in batches.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Policy.BaseURL, "policy-url", cfg.Policy.BaseURL, "base URL of the policy service")
	flags.IntVar(&cfg.Grid.Width, "width", cfg.Grid.Width, "grid width")
	flags.IntVar(&cfg.Grid.Height, "height", cfg.Grid.Height, "grid height")
	flags.DurationVar(&cfg.Policy.InteractiveTimeout, "timeout", cfg.Policy.InteractiveTimeout, "timeout for act and reset calls")
	flags.DurationVar(&cfg.Policy.TrainTimeout, "train-timeout", cfg.Policy.TrainTimeout, "timeout for batch training")
	flags.StringVar(&cfg.Training.StatsPath, "stats", cfg.Training.StatsPath, "append training statistics to this CSV file")

	rootCmd.AddCommand(
		newPlayCmd(cfg),
		newAutoRunCmd(cfg),
		newTrainCmd(cfg),
		newModelsCmd(cfg),
		newHealthCmd(cfg),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
