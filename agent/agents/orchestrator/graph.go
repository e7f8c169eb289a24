package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/salesops-assistant/agent/nodes/orchestrator"
)

const (
	nodeValidate   = "validate_request"
	nodeDecide     = "decide"
	nodeExecute    = "execute"
	nodeSynthesize = "synthesize"
	nodeApologize  = "apologize"
	nodeFinalize   = "finalize_reply"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodeDecide,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Decide(ctx, in, o.model, o.tools.ListSpecs())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDecide, err)
	}

	if err := graph.AddLambdaNode(nodeExecute,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Execute(ctx, in, o.tools, o.toolTimeout, o.recorder)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExecute, err)
	}

	if err := graph.AddLambdaNode(nodeSynthesize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Synthesize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSynthesize, err)
	}

	if err := graph.AddLambdaNode(nodeApologize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Apologize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeApologize, err)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}

	afterValidate := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in.Rejected() {
				return nodeFinalize, nil
			}
			return nodeDecide, nil
		},
		map[string]bool{nodeDecide: true, nodeFinalize: true},
	)
	if err := graph.AddBranch(nodeValidate, afterValidate); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeValidate, err)
	}

	afterDecide := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in.Err != nil {
				return nodeApologize, nil
			}
			if len(in.Proposal.Invocations) == 0 {
				return nodeSynthesize, nil
			}
			return nodeExecute, nil
		},
		map[string]bool{nodeExecute: true, nodeSynthesize: true, nodeApologize: true},
	)
	if err := graph.AddBranch(nodeDecide, afterDecide); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeDecide, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidate},
		{nodeExecute, nodeSynthesize},
		{nodeSynthesize, nodeFinalize},
		{nodeApologize, nodeFinalize},
		{nodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
