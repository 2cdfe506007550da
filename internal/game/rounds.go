package game

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Shuffler permutes word order at game start. One instance is shared by all
// lobbies of a process, so access to the source is serialised.
type Shuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewShuffler(seed uint64) *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func newProcessShuffler() *Shuffler {
	return NewShuffler(uint64(time.Now().UnixNano()))
}

// Shuffle applies an in-place Fisher-Yates permutation.
func (s *Shuffler) Shuffle(words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(words) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		words[i], words[j] = words[j], words[i]
	}
}

// TallyVotes counts votes per drawing id from one round's ledger.
func TallyVotes(ledger map[string]string) map[string]int {
	tally := make(map[string]int, len(ledger))
	for _, drawingID := range ledger {
		tally[drawingID]++
	}
	return tally
}

// ApplyScores adds each drawing's vote count to its artist and returns the
// per-player deltas. Votes for drawings whose artist has left are dropped.
func ApplyScores(drawings []*Drawing, tally map[string]int, players []*Player) map[string]int {
	deltas := make(map[string]int)
	for drawingID, count := range tally {
		if count <= 0 {
			continue
		}
		drawing := findDrawing(drawings, drawingID)
		if drawing == nil {
			continue
		}
		player := findPlayer(players, drawing.PlayerID)
		if player == nil {
			continue
		}
		player.Score += count
		deltas[player.ID] += count
	}
	return deltas
}

func findDrawing(drawings []*Drawing, id string) *Drawing {
	for _, drawing := range drawings {
		if drawing.ID == id {
			return drawing
		}
	}
	return nil
}

func findPlayer(players []*Player, id string) *Player {
	for _, player := range players {
		if player.ID == id {
			return player
		}
	}
	return nil
}
