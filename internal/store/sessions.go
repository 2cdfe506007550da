package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sketch-party/internal/db"
	"sketch-party/internal/game"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("persistence unavailable")
)

// SessionStore persists finished games and cumulative player statistics.
// Callers treat every method as best effort.
type SessionStore interface {
	SaveGameSession(ctx context.Context, record game.SessionRecord) error
	GetGameSession(ctx context.Context, roomCode string) (Session, error)
	SavePlayerStats(ctx context.Context, playerID string, delta StatsDelta) error
	GetPlayerStats(ctx context.Context, playerID string) (PlayerStats, error)
	RecordEvent(ctx context.Context, record game.SessionRecord, eventType string, payload any) error
}

type Session struct {
	ID          string              `json:"id"`
	RoomCode    string              `json:"room_code"`
	Players     []game.PlayerResult `json:"players"`
	Settings    game.Settings       `json:"settings"`
	GameState   string              `json:"game_state"`
	TotalRounds int                 `json:"total_rounds"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type PlayerStats struct {
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	GamesPlayed int       `json:"games_played"`
	TotalScore  int       `json:"total_score"`
	BestScore   int       `json:"best_score"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatsDelta is added onto a player's stored totals.
type StatsDelta struct {
	PlayerName  string
	GamesPlayed int
	Score       int
}

type gormSessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionStore returns a gorm backed store, or a no-op store when conn
// is nil. The no-op store reports every lookup as ErrNotFound.
func NewSessionStore(conn *gorm.DB) SessionStore {
	if conn == nil {
		return noopSessionStore{}
	}
	return &gormSessionStore{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *gormSessionStore) SaveGameSession(ctx context.Context, record game.SessionRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(record.Settings)
	if err != nil {
		return err
	}
	now := s.now()
	row := db.GameSession{
		ID:          record.ID,
		RoomCode:    record.RoomCode,
		Players:     datatypes.JSON(players),
		Settings:    datatypes.JSON(settings),
		GameState:   string(record.Phase),
		TotalRounds: record.TotalRounds,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   now,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"players", "settings", "game_state", "total_rounds", "updated_at"}),
	}).Create(&row).Error
	return classify("save game session", err)
}

func (s *gormSessionStore) GetGameSession(ctx context.Context, roomCode string) (Session, error) {
	var row db.GameSession
	err := s.db.WithContext(ctx).
		Where("room_code = ?", game.NormalizeRoomCode(roomCode)).
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, classify("get game session", err)
	}
	session := Session{
		ID:          row.ID,
		RoomCode:    row.RoomCode,
		GameState:   row.GameState,
		TotalRounds: row.TotalRounds,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Players, &session.Players); err != nil {
		return Session{}, fmt.Errorf("decode session players: %w", err)
	}
	if err := json.Unmarshal(row.Settings, &session.Settings); err != nil {
		return Session{}, fmt.Errorf("decode session settings: %w", err)
	}
	return session, nil
}

func (s *gormSessionStore) SavePlayerStats(ctx context.Context, playerID string, delta StatsDelta) error {
	if playerID == "" {
		return errors.New("player id is required")
	}
	now := s.now()
	row := db.PlayerStats{
		PlayerID:    playerID,
		PlayerName:  delta.PlayerName,
		GamesPlayed: delta.GamesPlayed,
		TotalScore:  delta.Score,
		BestScore:   delta.Score,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"player_name":  delta.PlayerName,
			"games_played": gorm.Expr("player_stats.games_played + ?", delta.GamesPlayed),
			"total_score":  gorm.Expr("player_stats.total_score + ?", delta.Score),
			"best_score":   gorm.Expr("GREATEST(player_stats.best_score, ?)", delta.Score),
			"updated_at":   now,
		}),
	}).Create(&row).Error
	return classify("save player stats", err)
}

func (s *gormSessionStore) GetPlayerStats(ctx context.Context, playerID string) (PlayerStats, error) {
	var row db.PlayerStats
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PlayerStats{}, ErrNotFound
	}
	if err != nil {
		return PlayerStats{}, classify("get player stats", err)
	}
	return PlayerStats{
		PlayerID:    row.PlayerID,
		PlayerName:  row.PlayerName,
		GamesPlayed: row.GamesPlayed,
		TotalScore:  row.TotalScore,
		BestScore:   row.BestScore,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (s *gormSessionStore) RecordEvent(ctx context.Context, record game.SessionRecord, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	row := db.Event{
		SessionID: record.ID,
		RoomCode:  record.RoomCode,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
		CreatedAt: s.now(),
	}
	return classify("record event", s.db.WithContext(ctx).Create(&row).Error)
}

// classify marks connection and timeout failures as ErrUnavailable so the
// caller can tell an outage from a bad row.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: sqlstate %s: %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type noopSessionStore struct{}

func (noopSessionStore) SaveGameSession(context.Context, game.SessionRecord) error {
	return nil
}

func (noopSessionStore) GetGameSession(context.Context, string) (Session, error) {
	return Session{}, ErrNotFound
}

func (noopSessionStore) SavePlayerStats(context.Context, string, StatsDelta) error {
	return nil
}

func (noopSessionStore) GetPlayerStats(context.Context, string) (PlayerStats, error) {
	return PlayerStats{}, ErrNotFound
}

func (noopSessionStore) RecordEvent(context.Context, game.SessionRecord, string, any) error {
	return nil
}
