package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/actionctx"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
)

// sequenceRun accumulates the output and host effects of a sequence.
type sequenceRun struct {
	output  strings.Builder
	refresh bool
	effect  handler.Effect
	view    handler.ViewUpdate
}

func (s *sequenceRun) add(step action.Command, r handler.ExecutionResult) {
	if !step.Silent && r.Output != "" {
		s.output.WriteString(r.Output)
		if !strings.HasSuffix(r.Output, "\n") {
			s.output.WriteByte('\n')
		}
	}
	s.refresh = s.refresh || r.RefreshRequired
	if r.Effect != handler.EffectNone {
		s.effect = r.Effect
	}
	if !r.View.IsZero() {
		s.view = r.View
	}
}

func (s *sequenceRun) finish(r handler.ExecutionResult) handler.ExecutionResult {
	r.Output = s.output.String()
	r.RefreshRequired = r.RefreshRequired || s.refresh
	r.Effect = s.effect
	r.View = s.view
	return r
}

// runSequence runs steps in order and stops at the first failure. The
// result succeeds only if every step did. onFailure runs after a failed
// step, onSuccess after the last step; neither changes the outcome.
func (e *Executor) runSequence(ctx context.Context, def *action.Definition, cmd action.Command, ac actionctx.Context, ec *execctx.ExecutionContext) handler.ExecutionResult {
	var seq sequenceRun
	last := handler.Succeeded(def.DisplayName() + " completed")

	for i, step := range cmd.Steps {
		r := e.run(ctx, def, step, ac, ec)
		seq.add(step, r)

		if !r.Success {
			e.logger.Debug("%s: step %d of %d failed: %s", def.ID, i+1, len(cmd.Steps), r.Message)
			if r.Message != "" {
				r.Message = fmt.Sprintf("step %d: %s", i+1, r.Message)
			}
			if cmd.OnFailure != nil {
				fr := e.run(ctx, def, *cmd.OnFailure, ac, ec)
				seq.add(*cmd.OnFailure, fr)
			}
			return seq.finish(r)
		}
		last = r
	}

	if cmd.OnSuccess != nil {
		sr := e.run(ctx, def, *cmd.OnSuccess, ac, ec)
		seq.add(*cmd.OnSuccess, sr)
		if !sr.Success {
			e.logger.Warn("%s: onSuccess failed: %s", def.ID, sr.Message)
			last.MessageType = handler.MessageWarning
			last.Message = "onSuccess failed: " + sr.Message
		} else if sr.Message != "" {
			last.Message = sr.Message
			last.MessageType = sr.MessageType
		}
	}

	return seq.finish(last)
}
