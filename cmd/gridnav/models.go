package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/spf13/cobra"
)

func newModelsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage saved policy snapshots",
	}

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return run(ctx, a, cmd, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved snapshots",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				models, err := a.models.ListModels(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEPSILON\tOBSTACLES\tCREATED")
				for _, m := range models {
					fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%s\n", m.ID, m.Name, m.Epsilon, len(m.Environment.Obstacles), m.CreatedAt)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "save <name>",
			Short: "Save the current policy with the configured obstacle layout",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				env := core.ModelEnvironment{Obstacles: a.session.Obstacles()}
				if err := a.models.SaveModel(ctx, args[0], env); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %q with %d obstacles\n", args[0], len(env.Obstacles))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "load <id>",
			Short: "Activate a saved snapshot on the policy service",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				loaded, err := a.models.LoadModel(ctx, core.ModelID(args[0]))
				if err != nil {
					return err
				}
				a.session.ApplyLoadedModel(loaded)
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded model %s (epsilon %.3f, %d obstacles)\n",
					args[0], loaded.Epsilon, len(loaded.Environment.Obstacles))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a saved snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
				if err := a.models.DeleteModel(ctx, core.ModelID(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted model %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}
