package orchestratornode

import (
	"context"
	"testing"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
)

func stateWith(invs ...contractx.ToolInvocation) *GraphState {
	return &GraphState{Status: StatusSuccess, Proposal: contractx.Proposal{Invocations: invs}}
}

func TestExecuteStopsAfterCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran []string
	reg := toolx.NewRegistry()
	reg.MustRegister(contractx.ToolSpec{Name: "first"},
		contractx.ActionFunc(func(context.Context, map[string]any) (contractx.ToolResult, error) {
			ran = append(ran, "first")
			cancel()
			return contractx.Success(contractx.NoteCreated{NoteID: "n1"}), nil
		}),
	)
	reg.MustRegister(contractx.ToolSpec{Name: "second"},
		contractx.ActionFunc(func(context.Context, map[string]any) (contractx.ToolResult, error) {
			ran = append(ran, "second")
			return contractx.Success(contractx.NoteCreated{NoteID: "n2"}), nil
		}),
	)

	out, err := Execute(ctx, stateWith(
		contractx.ToolInvocation{Seq: 1, Tool: "first"},
		contractx.ToolInvocation{Seq: 2, Tool: "second"},
	), reg, time.Second, NopRecorder{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("second invocation must not run, ran=%v", ran)
	}
	if out.Status != StatusError {
		t.Fatalf("expected error status, got %s", out.Status)
	}
	if len(out.Results) != 2 {
		t.Fatalf("every invocation needs a result, got %d", len(out.Results))
	}
	last := out.Results[1]
	if last.Seq != 2 || last.Tool != "second" || last.Failure == nil || last.Failure.Message != "turn cancelled" {
		t.Fatalf("unexpected cancelled result: %+v", last)
	}
}

func TestExecuteNormalizesActionResults(t *testing.T) {
	t.Parallel()

	reg := toolx.NewRegistry()
	reg.MustRegister(contractx.ToolSpec{Name: "empty"},
		contractx.ActionFunc(func(context.Context, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, nil
		}),
	)
	reg.MustRegister(contractx.ToolSpec{Name: "both"},
		contractx.ActionFunc(func(context.Context, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Payload: contractx.NoteCreated{NoteID: "n"},
				Failure: &contractx.Failure{Kind: contractx.FailureInvalidArguments, Message: "bad title"},
			}, nil
		}),
	)
	reg.MustRegister(contractx.ToolSpec{Name: "mutate"},
		contractx.ActionFunc(func(_ context.Context, args map[string]any) (contractx.ToolResult, error) {
			args["title"] = "changed"
			return contractx.Success(contractx.NoteCreated{NoteID: "m"}), nil
		}),
	)

	args := map[string]any{"title": "original"}
	out, err := Execute(context.Background(), stateWith(
		contractx.ToolInvocation{Seq: 1, Tool: "empty"},
		contractx.ToolInvocation{Seq: 2, Tool: "both"},
		contractx.ToolInvocation{Seq: 3, Tool: "mutate", Args: args},
	), reg, time.Second, NopRecorder{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if f := out.Results[0].Failure; f == nil || f.Kind != contractx.FailureDependency {
		t.Fatalf("empty result should be a dependency failure, got %+v", f)
	}
	if out.Results[1].Payload != nil || out.Results[1].Failure.Kind != contractx.FailureInvalidArguments {
		t.Fatalf("failure must drop the payload: %+v", out.Results[1])
	}
	if !out.Results[2].OK() {
		t.Fatalf("mutate should succeed: %+v", out.Results[2].Failure)
	}
	if args["title"] != "original" {
		t.Fatalf("action must not see the caller's args map, got %v", args["title"])
	}
	if out.Status != StatusSuccess {
		t.Fatalf("tool failures must not change the turn status, got %s", out.Status)
	}
}

func TestExecuteRejectsNilState(t *testing.T) {
	t.Parallel()

	if _, err := Execute(context.Background(), nil, toolx.NewRegistry(), time.Second, NopRecorder{}); err == nil {
		t.Fatal("expected error for nil state")
	}
}
