package server

import (
	"encoding/json"
	"errors"

	"sketch-party/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// minReadLimit leaves room for the non-drawing fields of an envelope.
const minReadLimit = 64 * 1024

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", c.Request.RemoteAddr).Msg("ws upgrade failed")
		return
	}
	cl := &client{
		id:      game.ConnID(uuid.NewString()),
		conn:    conn,
		limiter: s.newConnLimiter(),
	}
	s.hub.add(cl)
	log.Info().Str("conn_id", string(cl.id)).Str("remote", c.Request.RemoteAddr).Msg("ws connected")
	s.readWS(cl)
}

func (s *Server) readWS(cl *client) {
	defer s.dropClient(cl)
	cl.conn.SetReadLimit(int64(s.cfg.MaxDrawingBytes) + minReadLimit)
	for {
		_, payload, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("conn_id", string(cl.id)).Msg("ws read failed")
			}
			return
		}
		if !cl.limiter.Allow() {
			s.sendError(cl, "rate_limited", "too many messages, slow down")
			continue
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type == "" {
			s.sendError(cl, game.ErrorCode(game.ErrInvalidInput), "malformed message")
			continue
		}
		s.dispatch(cl, msg)
	}
}

func (s *Server) dropClient(cl *client) {
	s.hub.remove(cl.id)
	_ = cl.conn.Close()
	if left, ok := s.registry.Disconnect(cl.id); ok {
		s.afterLeave(&left)
	}
	log.Info().Str("conn_id", string(cl.id)).Msg("ws disconnected")
}

// dispatch runs one action. A panic is contained to this action so the
// connection and its lobby keep working.
func (s *Server) dispatch(cl *client, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("conn_id", string(cl.id)).
				Str("type", msg.Type).
				Msg("action panicked")
			s.sendError(cl, "internal", "internal error")
		}
	}()
	action, ok := actions[msg.Type]
	if !ok {
		s.sendError(cl, "unknown_action", "unknown message type "+msg.Type)
		return
	}
	if err := action(s, cl, msg.Data); err != nil {
		s.sendActionError(cl, msg.Type, err)
	}
}

func (s *Server) sendActionError(cl *client, msgType string, err error) {
	code := game.ErrorCode(err)
	message := err.Error()
	if code == "internal" {
		log.Error().Err(err).Str("conn_id", string(cl.id)).Str("type", msgType).Msg("action failed")
		message = "internal error"
	} else {
		log.Debug().Err(err).Str("conn_id", string(cl.id)).Str("type", msgType).Msg("action rejected")
	}
	s.sendError(cl, code, message)
}

func (s *Server) sendError(cl *client, code, message string) {
	s.send(cl, msgError, errorData{Code: code, Message: message})
}

func (s *Server) send(cl *client, msgType string, data any) {
	if err := cl.send(outbound{Type: msgType, Data: data}); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			log.Debug().Err(err).Str("conn_id", string(cl.id)).Str("type", msgType).Msg("ws send failed")
		}
	}
}

// broadcast sends one message per lobby member, each built from the
// snapshot that member is allowed to see.
func (s *Server) broadcast(lobby *game.Lobby, msgType string, build func(view game.MemberView) any) {
	for _, view := range lobby.Views() {
		cl, ok := s.hub.get(view.Conn)
		if !ok {
			continue
		}
		s.send(cl, msgType, build(view))
	}
}
