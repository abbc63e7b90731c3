package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/episode-duplication/internal/app"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var episode string
	var wait bool
	var timeout time.Duration
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Begin duplicating an episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := uuid.Parse(strings.TrimSpace(episode))
			if err != nil || sourceID == uuid.Nil {
				return fmt.Errorf("--episode must be a valid episode id")
			}
			application, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			// with Temporal the deployed workers run the chain; otherwise this
			// process is the only runner and has to stay up until it ends
			if application.Services.Engine != nil {
				if !wait {
					application.Log.Warn("No Temporal configured; chain runs in this process, waiting for it")
					wait = true
				}
				if err := application.Start(cmd.Context()); err != nil {
					return fmt.Errorf("start chain engine: %w", err)
				}
			}

			d, err := application.Services.Duplication.Begin(dbctx.Context{Ctx: cmd.Context()}, sourceID)
			if err != nil {
				return fmt.Errorf("begin duplication: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "duplication_id=%s status=%s\n", d.ID, d.Status)
			if !wait {
				return nil
			}

			waitCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			final, err := waitForTerminal(waitCtx, application, d.ID, poll)
			if err != nil {
				return fmt.Errorf("wait: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDuplication(final))
			if final.Status != types.DuplicationCompleted {
				return fmt.Errorf("duplication %s ended %s", final.ID, final.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&episode, "episode", "", "Source episode id to duplicate")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the duplication finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Hour, "Give up waiting after this long")
	cmd.Flags().DurationVar(&poll, "poll", 2*time.Second, "Status poll interval while waiting")
	_ = cmd.MarkFlagRequired("episode")

	return cmd
}

func waitForTerminal(ctx context.Context, application *app.App, id uuid.UUID, poll time.Duration) (*types.Duplication, error) {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		d, err := application.Services.Duplication.Get(dbctx.Context{Ctx: ctx}, id)
		if err != nil {
			return nil, err
		}
		if d.Status.Terminal() {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return d, ctx.Err()
		case <-t.C:
		}
	}
}
