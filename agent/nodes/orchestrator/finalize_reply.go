package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	"github.com/tanpawarit/salesops-assistant/agent/synth"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		reply = synth.FallbackReply
	}
	status := in.Status
	if status == "" {
		status = StatusSuccess
	}

	return GraphOutput{
		Status:      status,
		Reply:       reply,
		Text:        in.Proposal.Text,
		Invocations: in.Proposal.Invocations,
		Results:     in.Results,
		Err:         in.Err,
	}, nil
}
