package main

import (
	"context"
	"fmt"

	"github.com/boristopalov/gridnav/internal/client"
	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/spf13/cobra"
)

func newHealthCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the policy service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewPolicyClient(cfg.Policy.BaseURL, client.WithHealthTimeout(cfg.Policy.HealthTimeout))
			if err := c.Health(context.Background()); err != nil {
				return fmt.Errorf("policy service unreachable: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Policy service is healthy")
			return nil
		},
	}
}
