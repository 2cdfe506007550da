package game

import (
	"encoding/json"
	"time"
)

// ConnID identifies one transport connection. The transport owns the
// connection; the game only ever sees this token.
type ConnID string

type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseWordSubmission Phase = "word-submission"
	PhaseDrawing        Phase = "drawing"
	PhaseVoting         Phase = "voting"
	PhaseResults        Phase = "results"
)

const (
	DefaultDrawingTime = 60
	MaxDrawingTime     = 600
	DefaultMaxPlayers  = 8
	MinPlayersToStart  = 2
	MaxPlayersLimit    = 16
	ChatHistoryLimit   = 50
)

// Settings are fixed per lobby once created. Extra carries forward-compatible
// overrides the core does not interpret.
type Settings struct {
	DrawingTime int               `json:"drawing_time"`
	MaxPlayers  int               `json:"max_players"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		DrawingTime: DefaultDrawingTime,
		MaxPlayers:  DefaultMaxPlayers,
	}
}

// withDefaults fills zero values from defaults and clamps the drawing time
// and player limit.
func (s Settings) withDefaults(defaults Settings) Settings {
	out := Settings{
		DrawingTime: s.DrawingTime,
		MaxPlayers:  s.MaxPlayers,
	}
	if out.DrawingTime <= 0 {
		out.DrawingTime = defaults.DrawingTime
	}
	if out.DrawingTime <= 0 {
		out.DrawingTime = DefaultDrawingTime
	}
	if out.DrawingTime > MaxDrawingTime {
		out.DrawingTime = MaxDrawingTime
	}
	if out.MaxPlayers <= 0 {
		out.MaxPlayers = defaults.MaxPlayers
	}
	if out.MaxPlayers <= 0 {
		out.MaxPlayers = DefaultMaxPlayers
	}
	if out.MaxPlayers < MinPlayersToStart {
		out.MaxPlayers = MinPlayersToStart
	}
	if out.MaxPlayers > MaxPlayersLimit {
		out.MaxPlayers = MaxPlayersLimit
	}
	if len(defaults.Extra) > 0 || len(s.Extra) > 0 {
		out.Extra = make(map[string]string, len(defaults.Extra)+len(s.Extra))
		for k, v := range defaults.Extra {
			out.Extra[k] = v
		}
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func (s Settings) clone() Settings {
	out := s
	if s.Extra != nil {
		out.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

type Player struct {
	ID      string
	Name    string
	Conn    ConnID
	Ready   bool
	Word    string
	HasWord bool
	Score   int
}

type Drawing struct {
	ID         string          `json:"id"`
	PlayerID   string          `json:"player_id"`
	PlayerName string          `json:"player_name"`
	Data       json.RawMessage `json:"drawing_data"`
	Word       string          `json:"word"`
	Round      int             `json:"round"`
	Votes      int             `json:"votes"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Text       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Binding is what a connection resolves to.
type Binding struct {
	RoomCode string
	PlayerID string
}

// MemberView pairs a player's connection with the snapshot they may see.
type MemberView struct {
	Conn     ConnID
	PlayerID string
	Lobby    Snapshot
}

type CreateResult struct {
	RoomCode string
	PlayerID string
	Lobby    Snapshot
	Left     *DisconnectResult
}

type JoinResult struct {
	RoomCode string
	PlayerID string
	Lobby    Snapshot
	Left     *DisconnectResult
}

type StartResult struct {
	CurrentWord string
	Round       int
	TotalRounds int
	DrawingTime int
	Lobby       Snapshot
}

type DrawingResult struct {
	Drawing      Drawing
	AllSubmitted bool
	Lobby        Snapshot
}

// RoundScore reports the points awarded when a round closes.
type RoundScore struct {
	Round    int
	Deltas   map[string]int
	GameOver bool
}

type VoteResult struct {
	AllVoted bool
	Scored   *RoundScore
	Lobby    Snapshot
}

type RemoveResult struct {
	Removed       bool
	PlayerName    string
	Empty         bool
	VotingOpened  bool
	Scored        *RoundScore
	NewHostID     string
	PreviousPhase Phase
}

type DisconnectResult struct {
	Binding Binding
	Lobby   *Lobby
	RemoveResult
}

// PlayerResult is the persisted view of a player at the time of saving.
type PlayerResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionRecord is handed to the persistence layer.
type SessionRecord struct {
	ID          string
	RoomCode    string
	Phase       Phase
	Settings    Settings
	Players     []PlayerResult
	TotalRounds int
	CreatedAt   time.Time
}
