package game

// Snapshot is the read-only projection of a lobby sent to clients.
type Snapshot struct {
	RoomCode     string        `json:"room_code"`
	HostID       string        `json:"host_id"`
	Players      []PlayerView  `json:"players"`
	Settings     Settings      `json:"settings"`
	Phase        Phase         `json:"game_state"`
	CurrentRound int           `json:"current_round"`
	TotalRounds  int           `json:"total_rounds"`
	Words        []string      `json:"words"`
	Drawings     []Drawing     `json:"drawings"`
	Chat         []ChatMessage `json:"chat"`
}

// PlayerView never carries another player's word. Word is only filled in
// for the viewer's own row.
type PlayerView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Ready   bool   `json:"ready"`
	Score   int    `json:"score"`
	HasWord bool   `json:"has_word"`
	Word    string `json:"word,omitempty"`
}

func (l *Lobby) snapshotLocked(viewerID string) Snapshot {
	players := make([]PlayerView, 0, len(l.players))
	for _, player := range l.players {
		view := PlayerView{
			ID:      player.ID,
			Name:    player.Name,
			Ready:   player.Ready,
			Score:   player.Score,
			HasWord: player.HasWord,
		}
		if viewerID != "" && player.ID == viewerID {
			view.Word = player.Word
		}
		players = append(players, view)
	}

	words := []string{}
	totalRounds := 0
	if !l.acceptingWords() {
		words = append(words, l.words...)
		totalRounds = len(l.words)
	}

	drawings := make([]Drawing, 0, len(l.drawings))
	for _, drawing := range l.drawings {
		drawings = append(drawings, *drawing)
	}

	start := 0
	if len(l.chat) > ChatHistoryLimit {
		start = len(l.chat) - ChatHistoryLimit
	}
	chat := append([]ChatMessage{}, l.chat[start:]...)

	return Snapshot{
		RoomCode:     l.code,
		HostID:       l.hostID,
		Players:      players,
		Settings:     l.settings.clone(),
		Phase:        l.phase,
		CurrentRound: l.currentRound,
		TotalRounds:  totalRounds,
		Words:        words,
		Drawings:     drawings,
		Chat:         chat,
	}
}
