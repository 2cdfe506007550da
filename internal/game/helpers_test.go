package game

import (
	"fmt"
	"sync"
)

// scriptedIDs returns the queued room codes in order, then falls back to a
// counter. Entity ids are sequential.
type scriptedIDs struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (s *scriptedIDs) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) > 0 {
		code := s.codes[0]
		s.codes = s.codes[1:]
		return code
	}
	s.next++
	return fmt.Sprintf("R%05d", s.next)
}

func (s *scriptedIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("id-%d", s.next)
}

func newTestRegistry(codes ...string) *Registry {
	return NewRegistry(DefaultSettings(),
		WithIDGenerator(&scriptedIDs{codes: codes}),
		WithShuffler(NewShuffler(42)),
	)
}

func newTestLobby(names ...string) (*Lobby, []string) {
	lobby := newLobby("ABC123", DefaultSettings(), &scriptedIDs{}, NewShuffler(7))
	ids := make([]string, 0, len(names))
	for i, name := range names {
		player, err := lobby.addPlayer(ConnID(fmt.Sprintf("conn-%d", i)), name)
		if err != nil {
			panic(err)
		}
		ids = append(ids, player.ID)
	}
	return lobby, ids
}

func drawingFor(snapshot Snapshot, playerID string, round int) string {
	for _, drawing := range snapshot.Drawings {
		if drawing.PlayerID == playerID && drawing.Round == round {
			return drawing.ID
		}
	}
	return ""
}

func scoreOf(snapshot Snapshot, playerID string) int {
	for _, player := range snapshot.Players {
		if player.ID == playerID {
			return player.Score
		}
	}
	return -1
}
