package server

import (
	"encoding/json"
	"fmt"

	"quiz-clash/internal/db"
)

// RestoreActiveSessions reloads every unfinished session from the
// journal after a restart. Answers that were in flight when the process
// died are gone, so a session that was mid-question restarts that same
// question with a fresh countdown; a session that was showing results
// re-arms its cooldown.
func (s *Server) RestoreActiveSessions() error {
	if s.db == nil {
		return nil
	}
	var records []db.Session
	if err := s.db.Where("status <> ?", string(StatusFinished)).Find(&records).Error; err != nil {
		return err
	}
	restored := 0
	for i := range records {
		session, err := s.rebuildSession(&records[i])
		if err != nil {
			s.log.Error().Err(err).Uint("session_db_id", records[i].ID).Msg("session restore failed")
			continue
		}
		if err := s.store.RestoreSession(session); err != nil {
			continue
		}
		switch session.Status {
		case StatusPlaying:
			s.scheduleQuestionTimer(session)
		case StatusShowingResults:
			s.scheduleCooldownTimer(session)
		case StatusWaiting, StatusFinished:
		}
		restored++
	}
	if restored > 0 {
		s.log.Info().Int("sessions", restored).Msg("restored in-flight sessions")
	}
	return nil
}

func (s *Server) rebuildSession(record *db.Session) (*GameSession, error) {
	status := SessionStatus(record.Status)
	if !status.valid() {
		return nil, fmt.Errorf("unknown status %q", record.Status)
	}

	var cfg SessionConfig
	if len(record.Config) > 0 {
		if err := json.Unmarshal(record.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	var questions []Question
	if len(record.Questions) > 0 {
		if err := json.Unmarshal(record.Questions, &questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}

	session := &GameSession{
		ID:                   fmt.Sprintf("session-%d", record.ID),
		DBID:                 record.ID,
		JoinCode:             record.JoinCode,
		HostToken:            record.HostToken,
		Config:               cfg,
		Status:               status,
		CurrentQuestionIndex: record.CurrentQuestionIndex,
		Questions:            questions,
		CreatedAt:            record.CreatedAt,
	}

	var players []db.Player
	if err := s.db.Where("session_id = ?", record.ID).Order("player_id").Find(&players).Error; err != nil {
		return nil, err
	}
	for _, row := range players {
		player := Player{
			ID:     row.PlayerID,
			DBID:   row.ID,
			Name:   row.Name,
			IsHost: row.IsHost,
			Lives:  row.Lives,
			Score:  row.Score,
		}
		session.Players = append(session.Players, player)
		if row.IsHost {
			session.HostPlayerID = row.PlayerID
		}
	}
	if session.HostPlayerID == 0 {
		return nil, fmt.Errorf("session %d has no host", record.ID)
	}

	switch status {
	case StatusPlaying:
		// Restart the interrupted question from the top.
		if session.CurrentQuestionIndex < 0 || session.CurrentQuestionIndex >= len(session.Questions) {
			return nil, fmt.Errorf("session %d playing with index %d", record.ID, session.CurrentQuestionIndex)
		}
		now := s.clock.Now().UTC()
		session.CurrentQuestionStartTime = &now
	case StatusShowingResults:
		result, err := s.loadRoundResult(record.ID, session.CurrentQuestionIndex)
		if err != nil {
			return nil, err
		}
		session.LastRoundResult = result
	case StatusWaiting:
		session.CurrentQuestionIndex = -1
	case StatusFinished:
		session.CurrentQuestionIndex = -1
	}
	return session, nil
}

func (s *Server) loadRoundResult(sessionDBID uint, questionIndex int) (*RoundResult, error) {
	var record db.RoundResult
	err := s.db.Where("session_id = ? AND question_index = ?", sessionDBID, questionIndex).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	result := RoundResult{
		QuestionIndex: record.QuestionIndex,
		CorrectAnswer: record.CorrectAnswer,
		Players:       make(map[int]PlayerRoundResult),
	}
	if len(record.Players) > 0 {
		if err := json.Unmarshal(record.Players, &result.Players); err != nil {
			return nil, fmt.Errorf("decode round result: %w", err)
		}
	}
	return &result, nil
}
