package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

// Decide asks the model for a proposal. A model failure is recorded on the
// state instead of being returned, so the graph can route to the apology.
func Decide(
	ctx context.Context,
	in *GraphState,
	model contractx.LanguageModel,
	specs []contractx.ToolSpec,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	proposal, err := model.ProposeActions(ctx, contractx.ModelRequest{
		Utterance: in.Utterance,
		History:   in.Window,
		Now:       in.Now,
	}, specs)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("model proposal failed")
		in.Err = err
		in.Status = StatusError
		return in, nil
	}

	logx.Ctx(ctx).Debug().
		Int("invocations", len(proposal.Invocations)).
		Bool("has_text", proposal.Text != "").
		Msg("model proposal received")
	in.Proposal = proposal
	return in, nil
}

func Apologize(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Status = StatusError
	in.Reply = ApologyReply
	return in, nil
}
