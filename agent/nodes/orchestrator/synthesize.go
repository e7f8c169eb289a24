package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	"github.com/tanpawarit/salesops-assistant/agent/synth"
)

func Synthesize(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if len(in.Proposal.Invocations) == 0 {
		in.Reply = strings.TrimSpace(in.Proposal.Text)
		if in.Reply == "" {
			in.Reply = synth.FallbackReply
		}
		return in, nil
	}

	in.Reply = synth.Reply(in.Results)
	return in, nil
}
