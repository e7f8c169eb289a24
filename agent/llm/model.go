package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
)

// ToolModel proposes tool invocations with an eino tool-calling chat model.
// A compiled graph is cached per distinct tool set.
type ToolModel struct {
	chat         einomodel.ToolCallingChatModel
	systemPrompt string
	budget       *TokenBudget

	mu      sync.Mutex
	runners map[string]compose.Runnable[contractx.ModelRequest, *schema.Message]
}

var _ contractx.LanguageModel = (*ToolModel)(nil)

type ToolModelOption func(*ToolModel)

func WithTokenBudget(b *TokenBudget) ToolModelOption {
	return func(m *ToolModel) {
		m.budget = b
	}
}

func NewToolModel(chat einomodel.ToolCallingChatModel, systemPrompt string, opts ...ToolModelOption) (*ToolModel, error) {
	if chat == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: assistant", contractx.ErrPromptMissing)
	}
	m := &ToolModel{
		chat:         chat,
		systemPrompt: strings.TrimSpace(systemPrompt),
		runners:      map[string]compose.Runnable[contractx.ModelRequest, *schema.Message]{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

func (m *ToolModel) ProposeActions(ctx context.Context, req contractx.ModelRequest, specs []contractx.ToolSpec) (contractx.Proposal, error) {
	runner, err := m.runnerFor(ctx, specs)
	if err != nil {
		return contractx.Proposal{}, err
	}

	msg, err := runner.Invoke(ctx, req)
	if err != nil {
		return contractx.Proposal{}, fmt.Errorf("%w: %v", contractx.ErrAIUnavailable, err)
	}
	return toProposal(msg)
}

func (m *ToolModel) runnerFor(ctx context.Context, specs []contractx.ToolSpec) (compose.Runnable[contractx.ModelRequest, *schema.Message], error) {
	key := toolSetKey(specs)

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runners[key]; ok {
		return r, nil
	}

	chat := einomodel.ToolCallingChatModel(m.chat)
	if len(specs) > 0 {
		bound, err := m.chat.WithTools(toolx.ToolInfos(specs))
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		chat = bound
	}

	r, err := compileProposalGraph(ctx, chat, m.buildMessages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	m.runners[key] = r
	return r, nil
}

func compileProposalGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	build func(contractx.ModelRequest) []*schema.Message,
) (compose.Runnable[contractx.ModelRequest, *schema.Message], error) {
	graph := compose.NewGraph[contractx.ModelRequest, *schema.Message]()

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, req contractx.ModelRequest) ([]*schema.Message, error) {
			return build(req), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add build messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "build_messages"); err != nil {
		return nil, fmt.Errorf("add edge start->build_messages: %w", err)
	}
	if err := graph.AddEdge("build_messages", "model"); err != nil {
		return nil, fmt.Errorf("add edge build_messages->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("llm.propose_actions"))
	if err != nil {
		return nil, fmt.Errorf("compile proposal graph: %w", err)
	}
	return runner, nil
}

func (m *ToolModel) buildMessages(req contractx.ModelRequest) []*schema.Message {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	system := fmt.Sprintf("%s\n\nCurrent date and time: %s (%s).",
		m.systemPrompt, now.Format("2006-01-02 15:04 MST"), now.Weekday())

	history := m.budget.Trim(req.History)
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	for _, turn := range history {
		switch turn.Role {
		case contractx.RoleUser:
			msgs = append(msgs, schema.UserMessage(turn.Text))
		case contractx.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(renderTurn(turn), nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(req.Utterance))
	return msgs
}

// renderTurn is the text the model sees for a turn. Assistant turns carry
// their tool results so follow-ups can refer to them.
func renderTurn(turn contractx.ConversationTurn) string {
	if turn.Role != contractx.RoleAssistant || len(turn.Results) == 0 {
		return turn.Text
	}
	raw, err := json.Marshal(turn.Results)
	if err != nil {
		return turn.Text
	}
	return turn.Text + "\n\nTool results: " + string(raw)
}

// toProposal maps the model's tool calls to invocations. Unknown tool names
// pass through; the registry reports them.
func toProposal(msg *schema.Message) (contractx.Proposal, error) {
	if msg == nil {
		return contractx.Proposal{}, fmt.Errorf("%w: empty model response", contractx.ErrMalformedResponse)
	}

	out := contractx.Proposal{Text: strings.TrimSpace(msg.Content)}
	for i, call := range msg.ToolCalls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return contractx.Proposal{}, fmt.Errorf("%w: tool call %d has no name", contractx.ErrMalformedResponse, i+1)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return contractx.Proposal{}, fmt.Errorf("%w: invalid arguments for %s: %v", contractx.ErrMalformedResponse, name, err)
			}
		}
		if args == nil {
			args = map[string]any{}
		}

		out.Invocations = append(out.Invocations, contractx.ToolInvocation{
			Seq:    i + 1,
			Tool:   name,
			Args:   args,
			CallID: call.ID,
		})
	}
	return out, nil
}

func toolSetKey(specs []contractx.ToolSpec) string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Unavailable is the model used when no credential is configured. Every call
// fails with ErrAIUnavailable.
type Unavailable struct {
	Reason error
}

func (u Unavailable) ProposeActions(context.Context, contractx.ModelRequest, []contractx.ToolSpec) (contractx.Proposal, error) {
	if u.Reason != nil {
		return contractx.Proposal{}, fmt.Errorf("%w: %v", contractx.ErrAIUnavailable, u.Reason)
	}
	return contractx.Proposal{}, contractx.ErrAIUnavailable
}
