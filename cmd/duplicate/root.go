package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/episode-duplication/internal/app"
)

// commandContext builds the app lazily so --help never touches Postgres.
type commandContext struct {
	app *app.App
}

func (c *commandContext) ensureApp() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	// this process never serves HTTP
	_ = os.Setenv("RUN_SERVER", "false")
	a, err := app.New()
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	c.app = a
	return a, nil
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "duplicate",
		Short:         "Duplicate episodes and inspect duplication runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(newStartCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))

	return rootCmd
}
