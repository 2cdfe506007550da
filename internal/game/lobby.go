package game

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Lobby owns all mutable state of one room. Every exported method takes the
// lobby mutex for its whole duration, so operations on one room are applied
// one at a time in the order they acquire the lock.
type Lobby struct {
	mu       sync.Mutex
	ids      IDGenerator
	shuffler *Shuffler
	now      func() time.Time

	code      string
	sessionID string
	createdAt time.Time
	settings  Settings
	phase     Phase
	hostID    string
	closed    bool

	currentRound int
	players      []*Player
	words        []string
	drawings     []*Drawing
	votes        map[int]map[string]string
	chat         []ChatMessage
}

func newLobby(code string, settings Settings, ids IDGenerator, shuffler *Shuffler) *Lobby {
	now := time.Now().UTC()
	return &Lobby{
		ids:       ids,
		shuffler:  shuffler,
		now:       func() time.Time { return time.Now().UTC() },
		code:      code,
		sessionID: ids.NewID(),
		createdAt: now,
		settings:  settings,
		phase:     PhaseWaiting,
		votes:     make(map[int]map[string]string),
	}
}

func (l *Lobby) Code() string {
	return l.code
}

func (l *Lobby) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

// PlayerIDs returns current player ids in join order.
func (l *Lobby) PlayerIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.players))
	for _, player := range l.players {
		ids = append(ids, player.ID)
	}
	return ids
}

// Views returns one snapshot per current player, taken under a single lock
// so every recipient sees the same state.
func (l *Lobby) Views() []MemberView {
	l.mu.Lock()
	defer l.mu.Unlock()
	views := make([]MemberView, 0, len(l.players))
	for _, player := range l.players {
		views = append(views, MemberView{
			Conn:     player.Conn,
			PlayerID: player.ID,
			Lobby:    l.snapshotLocked(player.ID),
		})
	}
	return views
}

func (l *Lobby) addPlayer(conn ConnID, name string) (*Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrRoomNotFound
	}
	if len(l.players) >= l.settings.MaxPlayers {
		return nil, ErrRoomFull
	}
	if l.phase != PhaseWaiting {
		return nil, ErrInvalidPhase
	}
	player := &Player{
		ID:   l.ids.NewID(),
		Name: name,
		Conn: conn,
	}
	l.players = append(l.players, player)
	if l.hostID == "" {
		l.hostID = player.ID
	}
	return player, nil
}

// OpenWordSubmission moves a waiting lobby into the word-submission phase.
func (l *Lobby) OpenWordSubmission(playerID string) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseWaiting {
		return Snapshot{}, ErrInvalidPhase
	}
	if l.player(playerID) == nil {
		return Snapshot{}, ErrPlayerNotFound
	}
	l.phase = PhaseWordSubmission
	return l.snapshotLocked(playerID), nil
}

// SubmitWord records a player's secret word. Waiting lobbies accept words
// as well, matching how clients use the lobby screen.
func (l *Lobby) SubmitWord(playerID, word string) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acceptingWords() {
		return Snapshot{}, ErrInvalidPhase
	}
	player := l.player(playerID)
	if player == nil {
		return Snapshot{}, ErrPlayerNotFound
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return Snapshot{}, ErrInvalidInput
	}
	for _, other := range l.players {
		if other.HasWord && strings.EqualFold(other.Word, word) {
			return Snapshot{}, ErrDuplicateWord
		}
	}
	if player.HasWord {
		l.words = replaceWord(l.words, player.Word, word)
	} else {
		l.words = append(l.words, word)
	}
	player.Word = word
	player.HasWord = true
	return l.snapshotLocked(playerID), nil
}

func (l *Lobby) SetReady(playerID string, ready bool) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	player := l.player(playerID)
	if player == nil {
		return Snapshot{}, ErrPlayerNotFound
	}
	player.Ready = ready
	return l.snapshotLocked(playerID), nil
}

func (l *Lobby) StartGame(playerID string) (StartResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acceptingWords() {
		return StartResult{}, ErrInvalidPhase
	}
	if l.player(playerID) == nil {
		return StartResult{}, ErrPlayerNotFound
	}
	if len(l.players) < MinPlayersToStart {
		return StartResult{}, ErrInsufficientPlayers
	}
	for _, player := range l.players {
		if !player.HasWord {
			return StartResult{}, ErrIncompleteSubmissions
		}
	}

	words := make([]string, 0, len(l.players))
	for _, player := range l.players {
		words = append(words, player.Word)
	}
	l.shuffler.Shuffle(words)
	l.words = words
	l.currentRound = 0
	l.phase = PhaseDrawing

	return StartResult{
		CurrentWord: l.words[0],
		Round:       1,
		TotalRounds: len(l.words),
		DrawingTime: l.settings.DrawingTime,
		Lobby:       l.snapshotLocked(playerID),
	}, nil
}

func (l *Lobby) SubmitDrawing(playerID string, data json.RawMessage) (DrawingResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseDrawing {
		return DrawingResult{}, ErrInvalidPhase
	}
	player := l.player(playerID)
	if player == nil {
		return DrawingResult{}, ErrPlayerNotFound
	}
	round := l.currentRound + 1
	for _, drawing := range l.drawings {
		if drawing.Round == round && drawing.PlayerID == playerID {
			return DrawingResult{}, ErrAlreadySubmitted
		}
	}

	drawing := &Drawing{
		ID:         l.ids.NewID(),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Data:       append(json.RawMessage(nil), data...),
		Word:       l.words[l.currentRound],
		Round:      round,
	}
	l.drawings = append(l.drawings, drawing)

	allSubmitted := l.openVotingIfComplete()
	return DrawingResult{
		Drawing:      *drawing,
		AllSubmitted: allSubmitted,
		Lobby:        l.snapshotLocked(playerID),
	}, nil
}

func (l *Lobby) VoteDrawing(playerID, drawingID string) (VoteResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseVoting {
		return VoteResult{}, ErrInvalidPhase
	}
	if l.player(playerID) == nil {
		return VoteResult{}, ErrPlayerNotFound
	}
	ledger := l.ledger()
	if _, voted := ledger[playerID]; voted {
		return VoteResult{}, ErrAlreadyVoted
	}
	drawing := findDrawing(l.roundDrawings(), drawingID)
	if drawing == nil {
		return VoteResult{}, ErrDrawingNotFound
	}

	ledger[playerID] = drawing.ID
	drawing.Votes++

	result := VoteResult{AllVoted: len(ledger) >= len(l.players)}
	if result.AllVoted {
		result.Scored = l.finishRound()
	}
	result.Lobby = l.snapshotLocked(playerID)
	return result, nil
}

func (l *Lobby) SendChatMessage(playerID, text string) (ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	player := l.player(playerID)
	if player == nil {
		return ChatMessage{}, ErrPlayerNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrInvalidInput
	}
	msg := ChatMessage{
		ID:         l.ids.NewID(),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Text:       text,
		Timestamp:  l.now(),
	}
	if len(l.chat) >= ChatHistoryLimit {
		n := copy(l.chat, l.chat[len(l.chat)-ChatHistoryLimit+1:])
		l.chat = l.chat[:n]
	}
	l.chat = append(l.chat, msg)
	return msg, nil
}

// RemovePlayer drops a player. Completion of the current drawing or voting
// step is re-evaluated against the players that remain, and a vote the
// leaver already cast this round is withdrawn.
func (l *Lobby) RemovePlayer(playerID string) RemoveResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	index := -1
	for i, player := range l.players {
		if player.ID == playerID {
			index = i
			break
		}
	}
	if index < 0 {
		return RemoveResult{}
	}
	leaver := l.players[index]
	l.players = append(l.players[:index], l.players[index+1:]...)

	result := RemoveResult{
		Removed:       true,
		PlayerName:    leaver.Name,
		PreviousPhase: l.phase,
	}
	if l.acceptingWords() && leaver.HasWord {
		l.words = removeWord(l.words, leaver.Word)
	}
	if len(l.players) == 0 {
		l.closed = true
		l.hostID = ""
		result.Empty = true
		return result
	}
	if l.hostID == leaver.ID {
		l.hostID = l.players[0].ID
		result.NewHostID = l.hostID
	}

	switch l.phase {
	case PhaseDrawing:
		l.dropDrawing(leaver.ID, l.currentRound+1)
		result.VotingOpened = l.openVotingIfComplete()
	case PhaseVoting:
		ledger := l.ledger()
		if drawingID, voted := ledger[leaver.ID]; voted {
			delete(ledger, leaver.ID)
			if drawing := findDrawing(l.roundDrawings(), drawingID); drawing != nil && drawing.Votes > 0 {
				drawing.Votes--
			}
		}
		if len(ledger) >= len(l.players) {
			result.Scored = l.finishRound()
		}
	}
	return result
}

func (l *Lobby) Snapshot(viewerID string) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(viewerID)
}

func (l *Lobby) Session() SessionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	players := make([]PlayerResult, 0, len(l.players))
	for _, player := range l.players {
		players = append(players, PlayerResult{
			ID:    player.ID,
			Name:  player.Name,
			Score: player.Score,
		})
	}
	totalRounds := 0
	if !l.acceptingWords() {
		totalRounds = len(l.words)
	}
	return SessionRecord{
		ID:          l.sessionID,
		RoomCode:    l.code,
		Phase:       l.phase,
		Settings:    l.settings.clone(),
		Players:     players,
		TotalRounds: totalRounds,
		CreatedAt:   l.createdAt,
	}
}

func (l *Lobby) acceptingWords() bool {
	return l.phase == PhaseWaiting || l.phase == PhaseWordSubmission
}

func (l *Lobby) player(id string) *Player {
	return findPlayer(l.players, id)
}

// ledger returns the vote ledger of the current round, opening it if needed.
func (l *Lobby) ledger() map[string]string {
	ledger, ok := l.votes[l.currentRound]
	if !ok {
		ledger = make(map[string]string)
		l.votes[l.currentRound] = ledger
	}
	return ledger
}

func (l *Lobby) roundDrawings() []*Drawing {
	round := l.currentRound + 1
	out := make([]*Drawing, 0, len(l.players))
	for _, drawing := range l.drawings {
		if drawing.Round == round {
			out = append(out, drawing)
		}
	}
	return out
}

// dropDrawing discards a player's drawing for round. Only safe before the
// round's votes open.
func (l *Lobby) dropDrawing(playerID string, round int) {
	kept := l.drawings[:0]
	for _, drawing := range l.drawings {
		if drawing.Round == round && drawing.PlayerID == playerID {
			continue
		}
		kept = append(kept, drawing)
	}
	l.drawings = kept
}

// openVotingIfComplete switches to voting once every current player has a
// drawing for this round.
func (l *Lobby) openVotingIfComplete() bool {
	submitted := 0
	for _, drawing := range l.roundDrawings() {
		if l.player(drawing.PlayerID) != nil {
			submitted++
		}
	}
	if submitted < len(l.players) {
		return false
	}
	l.phase = PhaseVoting
	l.votes[l.currentRound] = make(map[string]string)
	return true
}

func (l *Lobby) finishRound() *RoundScore {
	tally := TallyVotes(l.ledger())
	deltas := ApplyScores(l.roundDrawings(), tally, l.players)
	score := &RoundScore{
		Round:  l.currentRound + 1,
		Deltas: deltas,
	}
	l.currentRound++
	if l.currentRound >= len(l.words) {
		l.phase = PhaseResults
		score.GameOver = true
	} else {
		l.phase = PhaseDrawing
	}
	return score
}

func replaceWord(words []string, old, replacement string) []string {
	for i, word := range words {
		if strings.EqualFold(word, old) {
			words[i] = replacement
			return words
		}
	}
	return append(words, replacement)
}

func removeWord(words []string, target string) []string {
	for i, word := range words {
		if strings.EqualFold(word, target) {
			return append(words[:i], words[i+1:]...)
		}
	}
	return words
}
