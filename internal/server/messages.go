package server

import (
	"encoding/json"

	"sketch-party/internal/game"
)

// Message is the inbound websocket envelope.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	msgCreateLobby        = "create-lobby"
	msgJoinLobby          = "join-lobby"
	msgOpenWordSubmission = "open-word-submission"
	msgSubmitWord         = "submit-word"
	msgSetReady           = "set-ready"
	msgStartGame          = "start-game"
	msgSubmitDrawing      = "submit-drawing"
	msgVoteDrawing        = "vote-drawing"
	msgChatMessage        = "chat-message"

	msgLobbyCreated     = "lobby-created"
	msgLobbyJoined      = "lobby-joined"
	msgLobbyUpdated     = "lobby-updated"
	msgWordSubmitted    = "word-submitted"
	msgGameStarted      = "game-started"
	msgDrawingSubmitted = "drawing-submitted"
	msgVoteSubmitted    = "vote-submitted"
	msgRoundScored      = "round-scored"
	msgGameFinished     = "game-finished"
	msgError            = "error"
)

type createLobbyPayload struct {
	PlayerName string        `json:"player_name" binding:"required,name"`
	Settings   game.Settings `json:"settings"`
}

type joinLobbyPayload struct {
	RoomCode   string `json:"room_code" binding:"required,roomcode"`
	PlayerName string `json:"player_name" binding:"required,name"`
}

type submitWordPayload struct {
	Word string `json:"word" binding:"required,word"`
}

type setReadyPayload struct {
	Ready bool `json:"ready"`
}

type submitDrawingPayload struct {
	DrawingData json.RawMessage `json:"drawing_data" binding:"required"`
}

type voteDrawingPayload struct {
	DrawingID string `json:"drawing_id" binding:"required,max=64"`
}

type chatMessagePayload struct {
	Message string `json:"message" binding:"required,chat"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type lobbyEntered struct {
	RoomCode string        `json:"room_code"`
	PlayerID string        `json:"player_id"`
	Lobby    game.Snapshot `json:"lobby"`
}

type lobbyUpdate struct {
	Event      string        `json:"event"`
	PlayerID   string        `json:"player_id,omitempty"`
	PlayerName string        `json:"player_name,omitempty"`
	NewHostID  string        `json:"new_host_id,omitempty"`
	Round      int           `json:"round,omitempty"`
	Lobby      game.Snapshot `json:"lobby"`
}

type gameStarted struct {
	CurrentWord string        `json:"current_word"`
	Round       int           `json:"round"`
	TotalRounds int           `json:"total_rounds"`
	DrawingTime int           `json:"drawing_time"`
	Lobby       game.Snapshot `json:"lobby"`
}

type drawingSubmitted struct {
	DrawingID    string        `json:"drawing_id"`
	PlayerID     string        `json:"player_id"`
	PlayerName   string        `json:"player_name"`
	Round        int           `json:"round"`
	AllSubmitted bool          `json:"all_submitted"`
	Lobby        game.Snapshot `json:"lobby"`
}

type voteSubmitted struct {
	VoterID  string        `json:"voter_id"`
	AllVoted bool          `json:"all_voted"`
	Lobby    game.Snapshot `json:"lobby"`
}

type roundScored struct {
	Round       int            `json:"round"`
	Scores      map[string]int `json:"scores"`
	GameOver    bool           `json:"game_over"`
	NextRound   int            `json:"next_round,omitempty"`
	CurrentWord string         `json:"current_word,omitempty"`
	Lobby       game.Snapshot  `json:"lobby"`
}

type gameFinished struct {
	Results []game.PlayerResult `json:"results"`
	Lobby   game.Snapshot       `json:"lobby"`
}

type gameSnapshot struct {
	Lobby game.Snapshot `json:"lobby"`
}
