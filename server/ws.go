package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

const wsReadLimit = 64 << 10

type wsError struct {
	Error string `json:"error"`
}

// handleChatWS runs one turn per frame. A frame is either a chat request
// object or plain text, which is sent to the connection's conversation.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		logx.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	log := logx.Ctx(ctx)
	defaultID, err := conversationID(r.URL.Query().Get("conversation_id"))
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "invalid conversation id")
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}

		req := parseFrame(data)
		convID := defaultID
		if req.ConversationID != "" {
			if convID, err = conversationID(req.ConversationID); err != nil {
				if werr := wsjson.Write(ctx, conn, wsError{Error: err.Error()}); werr != nil {
					return
				}
				continue
			}
		}

		resp, err := s.runTurn(ctx, convID, req.Message)
		if err != nil {
			log.Error().Err(err).Str("conversation_id", convID).Msg("websocket turn failed")
			if werr := wsjson.Write(ctx, conn, wsError{Error: "internal error"}); werr != nil {
				return
			}
			continue
		}
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			if !errors.Is(err, ctx.Err()) {
				log.Debug().Err(err).Msg("websocket write failed")
			}
			return
		}
	}
}

func parseFrame(data []byte) chatRequest {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var req chatRequest
		if err := json.Unmarshal(data, &req); err == nil {
			return req
		}
	}
	return chatRequest{Message: trimmed}
}
