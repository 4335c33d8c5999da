package db

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	ID                   uint      `gorm:"primaryKey"`
	JoinCode             string    `gorm:"size:12;uniqueIndex;not null"`
	HostToken            string    `gorm:"size:64;not null"`
	Status               string    `gorm:"size:32;not null"`
	CurrentQuestionIndex int       `gorm:"not null;default:-1"`
	Config               datatypes.JSON
	Questions            datatypes.JSON
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
	Players              []Player
	RoundResults         []RoundResult
	Events               []Event
}

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null;uniqueIndex:idx_players_session_name"`
	PlayerID  int       `gorm:"not null"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_players_session_name"`
	IsHost    bool      `gorm:"not null;default:false"`
	Lives     int       `gorm:"not null"`
	Score     int       `gorm:"not null"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type RoundResult struct {
	ID            uint      `gorm:"primaryKey"`
	SessionID     uint      `gorm:"index;not null;uniqueIndex:idx_round_results_session_question"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_round_results_session_question"`
	CorrectAnswer string    `gorm:"size:280;not null"`
	Players       datatypes.JSON
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null"`
	Type      string    `gorm:"size:64;not null"`
	Payload   datatypes.JSON
	CreatedAt time.Time `gorm:"not null"`
}

type QuestionBank struct {
	ID            uint      `gorm:"primaryKey"`
	Category      string    `gorm:"size:32;not null;index;uniqueIndex:idx_question_bank_category_prompt"`
	Type          string    `gorm:"size:32;not null"`
	Prompt        string    `gorm:"size:280;not null;uniqueIndex:idx_question_bank_category_prompt"`
	Options       datatypes.JSON
	CorrectAnswer string    `gorm:"size:280;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}
