package db

import (
	"time"

	"gorm.io/datatypes"
)

type GameSession struct {
	ID          string         `gorm:"primaryKey;size:64"`
	RoomCode    string         `gorm:"size:12;index;not null"`
	Players     datatypes.JSON `gorm:"type:jsonb;not null"`
	Settings    datatypes.JSON `gorm:"type:jsonb;not null"`
	GameState   string         `gorm:"size:32;not null"`
	TotalRounds int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type PlayerStats struct {
	PlayerID    string    `gorm:"primaryKey;size:64"`
	PlayerName  string    `gorm:"size:64;not null;default:''"`
	GamesPlayed int       `gorm:"not null;default:0"`
	TotalScore  int       `gorm:"not null;default:0"`
	BestScore   int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (PlayerStats) TableName() string {
	return "player_stats"
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	SessionID string         `gorm:"size:64;index;not null"`
	RoomCode  string         `gorm:"size:12;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
