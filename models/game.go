package models

import (
	"time"

	"gorm.io/gorm"
)

// Game is the archived result of a finished room.
type Game struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	QuizID    *uint          `json:"quiz_id"`
	Code      string         `json:"code" gorm:"index;not null"`
	Rounds    int            `json:"rounds" gorm:"not null"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Players []Player     `json:"players,omitempty" gorm:"foreignKey:GameID"`
	Answers []GameAnswer `json:"answers,omitempty" gorm:"foreignKey:GameID"`
}
