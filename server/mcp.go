package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	nodex "github.com/tanpawarit/salesops-assistant/agent/nodes/orchestrator"
	"github.com/tanpawarit/salesops-assistant/agent/synth"
	toolx "github.com/tanpawarit/salesops-assistant/agent/tool"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

const mcpServerName = "salesops-assistant"

// NewMCPServer publishes every registered tool over MCP. Callers there pass
// addresses themselves, so the send gate treats every address as typed by
// the user.
func NewMCPServer(reg *toolx.Registry, timeout time.Duration, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: mcpServerName, Version: version}, nil)
	for _, spec := range reg.ListSpecs() {
		server.AddTool(&mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: toolx.JSONSchema(spec),
		}, mcpHandler(reg, spec.Name, timeout))
	}
	return server
}

// RunMCPStdio serves MCP on stdin and stdout until the client disconnects or
// ctx is done.
func RunMCPStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func mcpHandler(reg *toolx.Registry, name string, timeout time.Duration) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req.Params.Arguments)
		if err != nil {
			return toolResult(contractx.Fail(contractx.FailureInvalidArguments, "%v", err).For(contractx.ToolInvocation{Seq: 1, Tool: name})), nil
		}

		scope := contractx.NewTurnScope("", nil)
		scope.DirectAddressing = true
		ctx = contractx.WithTurnScope(ctx, scope)

		started := time.Now()
		res := nodex.Invoke(ctx, reg, contractx.ToolInvocation{Seq: 1, Tool: name, Args: args}, timeout)
		log := logx.Component("mcp")
		ev := log.Info()
		if res.Failure != nil {
			ev = log.Warn().Str("failure", res.Failure.Message)
		}
		ev.Str("tool", name).Bool("ok", res.OK()).Dur("elapsed", time.Since(started)).Msg("mcp tool call")
		return toolResult(res), nil
	}
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

func toolResult(res contractx.ToolResult) *mcp.CallToolResult {
	content := []mcp.Content{&mcp.TextContent{Text: synth.Fragment(res)}}
	if raw, err := json.Marshal(res); err == nil {
		content = append(content, &mcp.TextContent{Text: string(raw)})
	}
	return &mcp.CallToolResult{Content: content, IsError: !res.OK()}
}
