package server

import (
	"context"
	"sync"
	"time"

	"sketch-party/internal/game"
	"sketch-party/internal/store"

	"github.com/rs/zerolog/log"
)

// Persistence and caching are best effort. Failures are logged and never
// reach the player.

func (s *Server) persistPhase(lobby *game.Lobby, eventType string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	record := lobby.Session()
	if err := s.sessions.SaveGameSession(ctx, record); err != nil {
		log.Warn().Err(err).Str("room_code", record.RoomCode).Str("session_id", record.ID).Msg("save game session failed")
		return
	}
	payload := map[string]any{
		"phase":   record.Phase,
		"players": len(record.Players),
	}
	if err := s.sessions.RecordEvent(ctx, record, eventType, payload); err != nil {
		log.Warn().Err(err).Str("room_code", record.RoomCode).Str("event", eventType).Msg("record event failed")
	}
}

func (s *Server) persistResults(lobby *game.Lobby) {
	s.persistPhase(lobby, "game_finished")

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	record := lobby.Session()
	for _, player := range record.Players {
		delta := store.StatsDelta{
			PlayerName:  player.Name,
			GamesPlayed: 1,
			Score:       player.Score,
		}
		if err := s.sessions.SavePlayerStats(ctx, player.ID, delta); err != nil {
			log.Warn().Err(err).Str("room_code", record.RoomCode).Str("player_id", player.ID).Msg("save player stats failed")
		}
	}
}

// cacheLobby writes the lobby's public snapshot. Writes for one room are
// serialized and each takes a fresh snapshot, so the last write carries the
// latest state.
func (s *Server) cacheLobby(lobby *game.Lobby) {
	mu := s.cacheLock(lobby.Code())
	mu.Lock()
	defer mu.Unlock()
	if lobby.PlayerCount() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	if err := s.cache.CacheLobbySnapshot(ctx, lobby.Code(), lobby.Snapshot(""), ttl); err != nil {
		log.Warn().Err(err).Str("room_code", lobby.Code()).Msg("cache lobby snapshot failed")
	}
}

func (s *Server) evictLobby(roomCode string) {
	mu := s.cacheLock(roomCode)
	mu.Lock()
	defer func() {
		mu.Unlock()
		s.cacheMu.Lock()
		delete(s.cacheLocks, roomCode)
		s.cacheMu.Unlock()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.Evict(ctx, roomCode); err != nil {
		log.Warn().Err(err).Str("room_code", roomCode).Msg("evict lobby snapshot failed")
	}
}

func (s *Server) cacheLock(roomCode string) *sync.Mutex {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	mu, ok := s.cacheLocks[roomCode]
	if !ok {
		mu = &sync.Mutex{}
		s.cacheLocks[roomCode] = mu
	}
	return mu
}
