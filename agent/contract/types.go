package contract

import (
	"time"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ParamSpec declares one tool parameter. Items describes array elements and
// Properties the fields of an object parameter.
type ParamSpec struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Default     any         `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Items       *ParamSpec  `json:"items,omitempty"`
	Properties  []ParamSpec `json:"properties,omitempty"`
}

// ToolSpec is the machine-readable signature of a registered tool. Params keep
// declaration order.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params,omitempty"`
}

func (s ToolSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// ToolInvocation is one proposed call. Seq is 1-based within a turn.
type ToolInvocation struct {
	Seq    int            `json:"seq"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	CallID string         `json:"call_id,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	Role        Role             `json:"role"`
	Text        string           `json:"text"`
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	Results     []ToolResult     `json:"results,omitempty"`
	At          time.Time        `json:"at"`
}

// ModelRequest is what the decision step hands to the language model.
type ModelRequest struct {
	Utterance string
	History   []ConversationTurn
	Now       time.Time
}

// Proposal is the model's answer: direct text, zero or more invocations, or both.
type Proposal struct {
	Text        string
	Invocations []ToolInvocation
}
