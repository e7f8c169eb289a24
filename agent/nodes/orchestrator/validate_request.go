package orchestratornode

import (
	"strings"
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

type TurnStatus string

const (
	StatusSuccess TurnStatus = "success"
	StatusError   TurnStatus = "error"

	EmptyUtteranceReply = "Please enter a message."
	ApologyReply        = "I'm sorry, but the AI service is currently not available. Please try again later."
)

type GraphInput struct {
	TurnID    string
	Utterance string
	Window    []contractx.ConversationTurn
}

type GraphOutput struct {
	Status      TurnStatus
	Reply       string
	Text        string
	Invocations []contractx.ToolInvocation
	Results     []contractx.ToolResult
	Err         error
}

type GraphState struct {
	TurnID    string
	Utterance string
	Window    []contractx.ConversationTurn
	Now       time.Time

	Proposal contractx.Proposal
	Results  []contractx.ToolResult

	Status TurnStatus
	Reply  string
	Err    error
}

// Rejected reports whether validation already settled the turn.
func (s *GraphState) Rejected() bool {
	return s.Status == StatusError && s.Reply != ""
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	st := &GraphState{
		TurnID:    in.TurnID,
		Utterance: strings.TrimSpace(in.Utterance),
		Window:    in.Window,
		Now:       nowFn(),
		Status:    StatusSuccess,
	}
	if st.Utterance == "" {
		st.Status = StatusError
		st.Reply = EmptyUtteranceReply
	}
	return st, nil
}
