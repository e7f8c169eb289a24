package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

// Resolver looks up the action for a tool name.
type Resolver interface {
	Resolve(name string) (contractx.Action, error)
}

// Recorder receives per-invocation and per-turn observations.
type Recorder interface {
	ObserveTool(tool string, outcome string, elapsed time.Duration)
	ObserveTurn(status string, elapsed time.Duration)
}

type NopRecorder struct{}

func (NopRecorder) ObserveTool(string, string, time.Duration) {}
func (NopRecorder) ObserveTurn(string, time.Duration)         {}

const outcomeOK = "ok"

// Execute runs the proposed invocations one at a time in proposal order.
// Once ctx is done the remaining invocations are answered without running.
func Execute(
	ctx context.Context,
	in *GraphState,
	tools Resolver,
	timeout time.Duration,
	rec Recorder,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	log := logx.Ctx(ctx)
	results := make([]contractx.ToolResult, 0, len(in.Proposal.Invocations))
	for _, inv := range in.Proposal.Invocations {
		if err := ctx.Err(); err != nil {
			in.Status = StatusError
			results = append(results, contractx.Fail(contractx.FailureDependency, "turn cancelled").For(inv))
			continue
		}

		started := time.Now()
		res := Invoke(ctx, tools, inv, timeout)
		elapsed := time.Since(started)

		outcome := outcomeOK
		ev := log.Info()
		if res.Failure != nil {
			outcome = string(res.Failure.Kind)
			ev = log.Warn().Str("failure", res.Failure.Message)
		}
		ev.Int("seq", inv.Seq).
			Str("tool", inv.Tool).
			Str("outcome", outcome).
			Dur("elapsed", elapsed).
			Msg("tool invocation finished")
		rec.ObserveTool(inv.Tool, outcome, elapsed)

		results = append(results, res)
	}
	if ctx.Err() != nil {
		in.Status = StatusError
	}

	in.Results = results
	return in, nil
}

// Invoke resolves and runs one invocation under the guard. It never returns a
// result without Tool and Seq set.
func Invoke(ctx context.Context, tools Resolver, inv contractx.ToolInvocation, timeout time.Duration) contractx.ToolResult {
	action, err := tools.Resolve(inv.Tool)
	if err != nil {
		return contractx.Fail(contractx.FailureUnknownTool, "no tool named %q", inv.Tool).For(inv)
	}
	return runGuarded(ctx, action, inv, timeout).For(inv)
}

// runGuarded executes one action under a timeout and turns errors and panics
// into dependency failures. An action that ignores its context is abandoned
// when the timeout fires.
func runGuarded(ctx context.Context, action contractx.Action, inv contractx.ToolInvocation, timeout time.Duration) contractx.ToolResult {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := make(map[string]any, len(inv.Args))
	for k, v := range inv.Args {
		args[k] = v
	}

	done := make(chan contractx.ToolResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- contractx.Fail(contractx.FailureDependency, "%s crashed: %v", inv.Tool, r)
			}
		}()

		res, err := action.Execute(callCtx, args)
		switch {
		case err != nil:
			done <- contractx.Fail(contractx.FailureDependency, "%v", err)
		case res.Failure != nil:
			res.Payload = nil
			done <- res
		case res.Payload == nil:
			done <- contractx.Fail(contractx.FailureDependency, "%s returned no result", inv.Tool)
		default:
			done <- res
		}
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return contractx.Fail(contractx.FailureDependency, "turn cancelled")
		}
		return contractx.Fail(contractx.FailureDependency, "%s timed out after %s", inv.Tool, timeout)
	}
}
