package runtime

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

/*
Context is the execution handle for one stage of one duplication.
It carries:
	- Ctx: request-scoped context (cancellation, trace)
	- DB: DB handle used by the stage's steps
	- Log: logger already scoped to job/stage/duplication_id
	- Duplication: the record as read after the status gate
	- Repo: the only sanctioned way to mutate the record from the harness
Stage handlers never change status themselves. They return an error and the
harness decides.
*/
type Context struct {
	Ctx         context.Context
	DB          *gorm.DB
	Log         *logger.Logger
	Duplication *types.Duplication
	Repo        repos.DuplicationRepo
	Stage       types.DuplicationStage
	result      map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, log *logger.Logger, d *types.Duplication, repo repos.DuplicationRepo, stage types.DuplicationStage) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Ctx:         ctx,
		DB:          db,
		Log:         log,
		Duplication: d,
		Repo:        repo,
		Stage:       stage,
	}
}

// Succeed records the stage summary handed back to the orchestrator.
func (c *Context) Succeed(result map[string]any) {
	if c == nil {
		return
	}
	c.result = result
}

func (c *Context) Result() map[string]any {
	if c == nil || c.result == nil {
		return map[string]any{}
	}
	return c.result
}

/*
Fail marks the duplication failed and logs the cause with its type.
A completed record is left alone. Fail never returns an error: the caller is
already on a failure path and re-raises the original cause.
*/
func (c *Context) Fail(cause error) {
	if c == nil || c.Duplication == nil {
		return
	}
	ctx := context.WithoutCancel(c.Ctx)
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if c.Log != nil {
		c.Log.Error("Duplication stage failed",
			"error", msg,
			"error_type", duplication.ErrorType(cause),
			"fatal", duplication.IsFatal(cause),
		)
	}
	if c.Repo == nil {
		return
	}
	if err := c.Repo.MarkFailed(dbctx.Context{Ctx: ctx}, c.Duplication.ID); err != nil && c.Log != nil {
		c.Log.Warn("Failed to mark duplication failed", "error", err)
		return
	}
	c.Duplication.Status = types.DuplicationFailed
}
