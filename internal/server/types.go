package server

import "time"

// SessionStatus is the closed set of phases a session moves through.
type SessionStatus string

const (
	StatusWaiting        SessionStatus = "waiting"
	StatusPlaying        SessionStatus = "playing"
	StatusShowingResults SessionStatus = "showing_results"
	StatusFinished       SessionStatus = "finished"
)

// ScoringMode selects how lives and points are computed when a round closes.
type ScoringMode string

const (
	// ModeSafeIfCorrect: a wrong answer costs a life, a timeout never does.
	ModeSafeIfCorrect ScoringMode = "safe_if_correct"
	// ModeFirstCorrectWins: only the earliest correct answer keeps its life.
	ModeFirstCorrectWins ScoringMode = "first_correct_wins"
)

const wsRoleHost = "host"

type SessionSummary struct {
	ID       string
	JoinCode string
	Status   SessionStatus
	Players  int
}

type SessionConfig struct {
	Category           string
	QuestionCount      int
	SecondsPerQuestion int
	StartingLives      int
	CooldownSeconds    int
	ScoringMode        ScoringMode
	AllowAnswerChange  bool
}

type GameSession struct {
	ID                       string
	DBID                     uint
	JoinCode                 string
	HostPlayerID             int
	HostToken                string
	Config                   SessionConfig
	Status                   SessionStatus
	CurrentQuestionIndex     int
	CurrentQuestionStartTime *time.Time
	Players                  []Player
	Questions                []Question
	LastRoundResult          *RoundResult
	CreatedAt                time.Time
}

type Player struct {
	ID     int
	DBID   uint
	Name   string
	IsHost bool
	Lives  int
	Score  int

	// Round-scoped, cleared on every advancement.
	CurrentAnswer          *string
	AnswerTimestamp        *time.Time
	AnsweredCorrectlyFirst *bool
}

// Question is external content; the engine never edits it after start.
type Question struct {
	ID            string
	Category      string
	Type          string
	Prompt        string
	Options       []string
	CorrectAnswer string
}

type RoundResult struct {
	QuestionIndex int
	CorrectAnswer string
	Players       map[int]PlayerRoundResult
}

type PlayerRoundResult struct {
	SubmittedAnswer *string
	WasCorrect      bool
	ScoreChange     int
	LifeChange      int
	IsFirstCorrect  bool
}
