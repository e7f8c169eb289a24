package state

import (
	"time"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

const DefaultCapacity = 20

// History is a bounded, FIFO-evicting sequence of turns for one conversation.
// It is a value: Append returns a new History and never aliases the receiver.
type History struct {
	Capacity int                          `json:"capacity"`
	Turns    []contractx.ConversationTurn `json:"turns"`
}

func NewHistory(capacity int) History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return History{Capacity: capacity}
}

func (h History) capacity() int {
	if h.Capacity <= 0 {
		return DefaultCapacity
	}
	return h.Capacity
}

func (h History) Len() int {
	return len(h.Turns)
}

func (h History) Append(turns ...contractx.ConversationTurn) History {
	limit := h.capacity()
	all := make([]contractx.ConversationTurn, 0, len(h.Turns)+len(turns))
	all = append(all, h.Turns...)
	all = append(all, turns...)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]contractx.ConversationTurn, len(all))
	copy(out, all)
	return History{Capacity: limit, Turns: out}
}

// Window returns a copy of the last n turns, or all of them when n <= 0.
func (h History) Window(n int) []contractx.ConversationTurn {
	src := h.Turns
	if n > 0 && len(src) > n {
		src = src[len(src)-n:]
	}
	out := make([]contractx.ConversationTurn, len(src))
	copy(out, src)
	return out
}

func UserTurn(text string, at time.Time) contractx.ConversationTurn {
	return contractx.ConversationTurn{Role: contractx.RoleUser, Text: text, At: at.UTC()}
}

func AssistantTurn(
	text string,
	invocations []contractx.ToolInvocation,
	results []contractx.ToolResult,
	at time.Time,
) contractx.ConversationTurn {
	return contractx.ConversationTurn{
		Role:        contractx.RoleAssistant,
		Text:        text,
		Invocations: invocations,
		Results:     results,
		At:          at.UTC(),
	}
}
