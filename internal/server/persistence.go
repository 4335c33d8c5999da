package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"quiz-clash/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The journal is write-behind: the in-memory store stays authoritative
// and journal failures are logged, never allowed to block a transition.
// Rows exist so a restarted server can pick up in-flight sessions and so
// finished sessions can still serve their results payload.

func (s *Server) persistSession(session *GameSession) error {
	if s.db == nil {
		return nil
	}
	configJSON, err := toJSON(session.Config)
	if err != nil {
		return err
	}
	questionsJSON, err := toJSON(session.Questions)
	if err != nil {
		return err
	}
	record := db.Session{
		JoinCode:             session.JoinCode,
		HostToken:            session.HostToken,
		Status:               string(session.Status),
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		Config:               configJSON,
		Questions:            questionsJSON,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	session.DBID = record.ID
	newID := fmt.Sprintf("session-%d", record.ID)
	if session.ID != newID {
		s.store.UpdateSessionID(session, newID)
	}
	return s.persistEvent(session, "session_created", EventPayload{
		SessionID: session.ID,
		JoinCode:  session.JoinCode,
	})
}

func (s *Server) ensureSessionDBID(session *GameSession) error {
	if s.db == nil || session.DBID != 0 {
		return nil
	}
	var record db.Session
	if err := s.db.Where("join_code = ?", session.JoinCode).First(&record).Error; err != nil {
		return err
	}
	session.DBID = record.ID
	return nil
}

func (s *Server) persistPlayer(session *GameSession, player *Player) (int, error) {
	if s.db == nil {
		return player.ID, nil
	}
	if player.DBID != 0 {
		return player.ID, nil
	}
	if session.DBID == 0 {
		if err := s.ensureSessionDBID(session); err != nil {
			return 0, err
		}
		if session.DBID == 0 {
			return 0, errors.New("session not journaled")
		}
	}
	record := db.Player{
		SessionID: session.DBID,
		PlayerID:  player.ID,
		Name:      player.Name,
		IsHost:    player.IsHost,
		Lives:     player.Lives,
		Score:     player.Score,
		JoinedAt:  s.clock.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(session.DBID, player.Name)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return player.ID, nil
			}
		}
		return 0, err
	}
	player.DBID = record.ID
	if err := s.persistEvent(session, "player_joined", EventPayload{
		PlayerName: player.Name,
		PlayerID:   player.ID,
	}); err != nil {
		return player.ID, err
	}
	return player.ID, nil
}

func (s *Server) findPlayerDBID(sessionDBID uint, name string) (uint, error) {
	var record db.Player
	if err := s.db.Where("session_id = ? AND name = ?", sessionDBID, name).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func (s *Server) persistQuestions(session *GameSession) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureSessionDBID(session); err != nil {
		return err
	}
	questionsJSON, err := toJSON(session.Questions)
	if err != nil {
		return err
	}
	return s.db.Model(&db.Session{}).
		Where("id = ?", session.DBID).
		Update("questions", questionsJSON).Error
}

// persistEvent also keeps the session row's status/index columns current.
func (s *Server) persistEvent(session *GameSession, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureSessionDBID(session); err != nil {
		return err
	}
	if session.DBID == 0 {
		return errors.New("session not journaled")
	}
	payloadJSON, err := toJSON(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		SessionID: session.DBID,
		Type:      eventType,
		Payload:   payloadJSON,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return err
	}
	return s.db.Model(&db.Session{}).
		Where("id = ?", session.DBID).
		Updates(map[string]any{
			"status":                 string(session.Status),
			"current_question_index": session.CurrentQuestionIndex,
		}).Error
}

func (s *Server) persistRoundResult(session *GameSession, result *RoundResult) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureSessionDBID(session); err != nil {
		return err
	}
	playersJSON, err := toJSON(result.Players)
	if err != nil {
		return err
	}
	record := db.RoundResult{
		SessionID:     session.DBID,
		QuestionIndex: result.QuestionIndex,
		CorrectAnswer: result.CorrectAnswer,
		Players:       playersJSON,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	for i := range session.Players {
		player := &session.Players[i]
		if player.DBID == 0 {
			continue
		}
		if err := s.db.Model(&db.Player{}).
			Where("id = ?", player.DBID).
			Updates(map[string]any{"lives": player.Lives, "score": player.Score}).Error; err != nil {
			return err
		}
	}
	return s.persistEvent(session, "round_evaluated", EventPayload{
		QuestionIndex: result.QuestionIndex,
		Status:        session.Status,
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func toJSON(value any) (datatypes.JSON, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
