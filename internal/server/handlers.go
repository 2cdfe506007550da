package server

import (
	"errors"
	"net/http"
	"time"

	"sketch-party/internal/game"
	"sketch-party/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type roomCodeURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

type playerURI struct {
	ID string `uri:"id" binding:"required,max=64"`
}

func (s *Server) handleHealth(c *gin.Context) {
	lobbies, connections := s.registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"lobbies":     lobbies,
		"connections": connections,
	})
}

func (s *Server) handleGetLobby(c *gin.Context) {
	var req roomCodeURI
	if err := c.ShouldBindUri(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid room code")
		return
	}
	code := game.NormalizeRoomCode(req.Code)

	if lobby, exists := s.registry.Lobby(code); exists {
		c.JSON(http.StatusOK, lobby.Snapshot(""))
		return
	}
	snapshot, ok, err := s.cache.GetCachedLobbySnapshot(c.Request.Context(), code)
	if err != nil {
		log.Warn().Err(err).Str("room_code", code).Msg("lobby cache read failed")
	}
	if !ok {
		writeError(c, http.StatusNotFound, "lobby not found")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleGetSession(c *gin.Context) {
	var req roomCodeURI
	if err := c.ShouldBindUri(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid room code")
		return
	}
	session, err := s.sessions.GetGameSession(c.Request.Context(), req.Code)
	if err != nil {
		s.writeStoreError(c, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleGetPlayerStats(c *gin.Context) {
	var req playerURI
	if err := c.ShouldBindUri(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid player id")
		return
	}
	stats, err := s.sessions.GetPlayerStats(c.Request.Context(), req.ID)
	if err != nil {
		s.writeStoreError(c, err, "player stats not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) writeStoreError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrUnavailable):
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("store unavailable")
		writeError(c, http.StatusServiceUnavailable, "storage unavailable")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("store lookup failed")
		writeError(c, http.StatusInternalServerError, "lookup failed")
	}
}
