package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a duplication's status and per-stage progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			dupID, err := uuid.Parse(strings.TrimSpace(id))
			if err != nil {
				return fmt.Errorf("--id must be a valid duplication id")
			}
			application, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			d, err := application.Services.Duplication.Get(dbctx.Context{Ctx: cmd.Context()}, dupID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDuplication(d))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Duplication id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var episode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List duplications of a source episode, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := uuid.Parse(strings.TrimSpace(episode))
			if err != nil {
				return fmt.Errorf("--episode must be a valid episode id")
			}
			application, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			list, err := application.Services.Duplication.ListForEpisode(dbctx.Context{Ctx: cmd.Context()}, sourceID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No duplications")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDuplicationList(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&episode, "episode", "", "Source episode id")
	_ = cmd.MarkFlagRequired("episode")

	return cmd
}
