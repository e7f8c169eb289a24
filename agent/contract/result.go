package contract

import (
	"encoding/json"
	"fmt"
)

type FailureKind string

const (
	FailureInvalidArguments FailureKind = "InvalidArguments"
	FailureUnknownTool      FailureKind = "UnknownTool"
	FailureDependency       FailureKind = "DependencyError"
	FailureNotImplemented   FailureKind = "NotImplemented"
	FailureUnauthorized     FailureKind = "Unauthorized"
)

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// ToolResult holds either a Payload or a Failure, never both.
type ToolResult struct {
	Tool    string
	Seq     int
	Payload Payload
	Failure *Failure
}

func Success(p Payload) ToolResult {
	if p == nil {
		return Fail(FailureDependency, "tool returned no result")
	}
	return ToolResult{Payload: p}
}

func Fail(kind FailureKind, format string, args ...any) ToolResult {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return ToolResult{Failure: &Failure{Kind: kind, Message: msg}}
}

func (r ToolResult) OK() bool {
	return r.Failure == nil && r.Payload != nil
}

// For stamps the result with the invocation it answers.
func (r ToolResult) For(inv ToolInvocation) ToolResult {
	r.Tool = inv.Tool
	r.Seq = inv.Seq
	return r
}

type toolResultJSON struct {
	Tool    string          `json:"tool,omitempty"`
	Seq     int             `json:"seq,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Failure *Failure        `json:"failure,omitempty"`
}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	out := toolResultJSON{Tool: r.Tool, Seq: r.Seq, Failure: r.Failure}
	if r.Failure == nil && r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", r.Payload.Kind(), err)
		}
		out.Kind = r.Payload.Kind()
		out.Payload = raw
	}
	return json.Marshal(out)
}

func (r *ToolResult) UnmarshalJSON(data []byte) error {
	var in toolResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ToolResult{Tool: in.Tool, Seq: in.Seq, Failure: in.Failure}
	if in.Failure != nil || in.Kind == "" {
		return nil
	}
	p, err := decodePayload(in.Kind, in.Payload)
	if err != nil {
		return err
	}
	r.Payload = p
	return nil
}
