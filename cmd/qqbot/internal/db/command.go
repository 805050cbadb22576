package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chewangneko/qqcallback/cmd/qqbot/internal"
	"github.com/chewangneko/qqcallback/pkg/config"
	"github.com/chewangneko/qqcallback/pkg/store"
)

var errStoreDisabled = errors.New("user store is disabled (set database.enabled)")

func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the user store",
		Example: `  qqbot db init
  qqbot db clear --yes`,
	}

	cmd.AddCommand(newInitCommand(), newClearCommand())
	return cmd
}

type tableStep struct {
	name string
	fn   func(context.Context) (time.Duration, error)
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, d *store.Database) error {
				out := cmd.OutOrStdout()
				steps := []tableStep{
					{"channel_table", d.InitChannelTable},
					{"group_table", d.InitGroupTable},
					{"c2c_table", d.InitDirectTable},
				}
				for _, step := range steps {
					took, err := step.fn(ctx)
					if err != nil {
						return fmt.Errorf("create %s: %w", step.name, err)
					}
					fmt.Fprintf(out, "  %s: %s\n", step.name, took)
				}
				fmt.Fprintf(out, "✓ User tables ready (%s)\n", cfg.Database.Driver)
				return nil
			})
		},
	}
}

func newClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded user and reset ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the user store without --yes")
			}
			return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, d *store.Database) error {
				if err := d.ClearTables(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ User tables cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deleting all users")
	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, *config.Config, *store.Database) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return errStoreDisabled
	}
	if err := internal.SetupLogging(cfg, false); err != nil {
		return err
	}

	d, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer d.Close()

	return fn(ctx, cfg, d)
}
