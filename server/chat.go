package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tanpawarit/salesops-assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	statex "github.com/tanpawarit/salesops-assistant/agent/state"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

const maxConversationIDLen = 128

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response        string                     `json:"response"`
	Status          string                     `json:"status"`
	ConversationID  string                     `json:"conversation_id"`
	TurnID          string                     `json:"turn_id"`
	FunctionCalls   []contractx.ToolInvocation `json:"function_calls"`
	FunctionResults []contractx.ToolResult     `json:"function_results"`
}

func conversationID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return statex.DefaultConversationID, nil
	}
	if len(id) > maxConversationIDLen {
		return "", fmt.Errorf("%w: conversation_id is longer than %d characters", errBadRequest, maxConversationIDLen)
	}
	return id, nil
}

// runTurn serializes turns per conversation so concurrent requests never
// interleave their history writes.
func (s *Server) runTurn(ctx context.Context, convID, message string) (chatResponse, error) {
	unlock := s.locks.Lock(convID)
	defer unlock()

	history, err := statex.LoadOrNew(ctx, s.deps.History, convID, s.cfg.HistoryCapacity)
	if err != nil {
		return chatResponse{}, fmt.Errorf("load history: %w", err)
	}

	result, err := s.deps.Turns.HandleTurn(ctx, message, history)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("conversation_id", convID).Msg("turn returned an error")
	}

	if result.History.Len() > 0 {
		if err := s.deps.History.Save(ctx, convID, result.History); err != nil {
			return chatResponse{}, fmt.Errorf("save history: %w", err)
		}
	}

	return toChatResponse(convID, result), nil
}

func toChatResponse(convID string, result orchestrator.TurnResult) chatResponse {
	resp := chatResponse{
		Response:        result.Reply,
		Status:          string(result.Status),
		ConversationID:  convID,
		TurnID:          result.TurnID,
		FunctionCalls:   result.Invocations,
		FunctionResults: result.Results,
	}
	if resp.FunctionCalls == nil {
		resp.FunctionCalls = []contractx.ToolInvocation{}
	}
	if resp.FunctionResults == nil {
		resp.FunctionResults = []contractx.ToolResult{}
	}
	return resp
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	convID, err := conversationID(req.ConversationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.runTurn(r.Context(), convID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	unlock := s.locks.Lock(convID)
	defer unlock()
	if err := s.deps.History.Delete(r.Context(), convID); err != nil {
		writeError(w, r, fmt.Errorf("delete history: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
