// Package assistant is the submit pipeline: interpret the user's text into
// an action batch, or fall back to a literal add, then reconcile.
package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/koushikyemula/cue/pkg/action"
	"github.com/koushikyemula/cue/pkg/config"
	"github.com/koushikyemula/cue/pkg/reconcile"
	"github.com/koushikyemula/cue/pkg/task"
)

// Interpreter is the model-backed text-to-actions call.
type Interpreter interface {
	Interpret(ctx context.Context, text string, tasks []task.Task, timezone string) (*action.Batch, error)
}

type Assistant struct {
	interpreter Interpreter
	reconciler  *reconcile.Reconciler
	logger      *zap.SugaredLogger
}

func New(interpreter Interpreter, reconciler *reconcile.Reconciler, logger *zap.SugaredLogger) *Assistant {
	return &Assistant{
		interpreter: interpreter,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// Submit runs one user input through the pipeline and returns the new
// collection plus notices. Interpretation failures never surface as errors:
// the input downgrades to a single literal add on the anchor date, so the
// user always gets a task out of whatever they typed. With AI disabled the
// interpreter is never invoked and the same literal add is built directly.
func (a *Assistant) Submit(ctx context.Context, text string, anchor time.Time, tasks []task.Task, settings *config.Settings) (*reconcile.Result, error) {
	actions := fallbackBatch()

	if settings.AIEnabled && a.interpreter != nil {
		batch, err := a.interpreter.Interpret(ctx, text, tasks, timezone(settings))
		if err != nil {
			a.logger.Warnw("interpretation failed, downgrading to literal add", "error", err)
		} else {
			actions = batch.Actions
		}
	}

	return a.reconciler.Apply(ctx, actions, text, anchor, tasks, settings)
}

// fallbackBatch is a single bare add. The reconciler fills in the raw text,
// the anchor date and the default priority, so this is indistinguishable
// from a successful one-add interpretation.
func fallbackBatch() []action.Action {
	return []action.Action{{Action: action.Add}}
}

func timezone(settings *config.Settings) string {
	if settings.Timezone != "" {
		return settings.Timezone
	}
	return "Local"
}
