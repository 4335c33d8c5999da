package server

// EventPayload is the journaled detail attached to session events.
type EventPayload struct {
	SessionID     string        `json:"session_id,omitempty"`
	JoinCode      string        `json:"join_code,omitempty"`
	PlayerName    string        `json:"player,omitempty"`
	PlayerID      int           `json:"player_id,omitempty"`
	QuestionIndex int           `json:"question_index,omitempty"`
	Status        SessionStatus `json:"status,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}
