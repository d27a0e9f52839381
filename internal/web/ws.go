package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsMaxFrame  = 64 << 10
)

// wsReply is one frame sent to the browser: either a chat message or an error.
type wsReply struct {
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleWebSocket runs one turn per {"message"} frame received.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxFrame)

	ctx := r.Context()
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", "err", err)
			}
			return
		}

		var out wsReply
		if strings.TrimSpace(req.Message) == "" {
			out = wsReply{Error: "message is required"}
		} else if reply, err := s.chat.Turn(ctx, req.Message); err != nil {
			s.logger.Error("chat turn failed", "err", err)
			out = wsReply{Error: ErrorPrefix + err.Error()}
		} else {
			out = wsReply{Role: "assistant", Text: reply}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug("websocket write", "err", err)
			return
		}
	}
}
