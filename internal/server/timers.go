package server

import (
	"time"

	"sketch-party/internal/game"

	"github.com/rs/zerolog/log"
)

// Drawing time is advisory: when it runs out the room is told so clients
// can submit what they have. The lobby itself never changes phase on a
// timer.

func (s *Server) scheduleDrawingDeadline(lobby *game.Lobby) {
	snapshot := lobby.Snapshot("")
	if snapshot.Phase != game.PhaseDrawing {
		return
	}
	round := snapshot.CurrentRound + 1
	duration := time.Duration(snapshot.Settings.DrawingTime) * time.Second
	if duration <= 0 {
		return
	}
	code := lobby.Code()
	s.timersMu.Lock()
	if existing, ok := s.timers[code]; ok {
		existing.Stop()
	}
	s.timers[code] = time.AfterFunc(duration, func() {
		s.drawingTimeUp(lobby, round)
	})
	s.timersMu.Unlock()
}

func (s *Server) cancelDrawingDeadline(code string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[code]; ok {
		timer.Stop()
		delete(s.timers, code)
	}
}

func (s *Server) drawingTimeUp(lobby *game.Lobby, round int) {
	current, ok := s.registry.Lobby(lobby.Code())
	if !ok || current != lobby {
		return
	}
	snapshot := lobby.Snapshot("")
	if snapshot.Phase != game.PhaseDrawing || snapshot.CurrentRound+1 != round {
		return
	}
	s.timersMu.Lock()
	delete(s.timers, lobby.Code())
	s.timersMu.Unlock()

	log.Debug().Str("room_code", lobby.Code()).Int("round", round).Msg("drawing time up")
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event: "drawing-time-up",
		Round: round,
	})
}

func (s *Server) pendingDeadlines() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return len(s.timers)
}
