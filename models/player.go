package models

import (
	"time"

	"gorm.io/gorm"
)

// Player is a final standing row of an archived game. Hosts are not stored.
type Player struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	GameID    uint           `json:"game_id" gorm:"not null;index"`
	PlayerID  string         `json:"player_id" gorm:"not null"` // session-scoped id
	Name      string         `json:"name" gorm:"not null"`
	Score     int            `json:"score" gorm:"not null;default:0"`
	Rank      int            `json:"rank" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
