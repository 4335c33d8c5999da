package server

import (
	"fmt"
)

// The legal phase graph:
//
//	waiting -> playing(0)            host starts, >=1 player, questions set
//	playing -> showing_results       all active players answered, or timer
//	showing_results -> playing(n+1)  cooldown elapsed or host forces
//	showing_results -> finished      questions exhausted or <=1 active player
//
// Every edge is applied inside a Store.UpdateSession transaction that
// re-checks the current status first, so duplicate or stale triggers
// no-op instead of corrupting state.

func (s SessionStatus) valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusShowingResults, StatusFinished:
		return true
	}
	return false
}

// acceptingAnswers reports whether answers may be recorded in this phase.
func (s SessionStatus) acceptingAnswers() bool {
	switch s {
	case StatusPlaying:
		return true
	case StatusWaiting, StatusShowingResults, StatusFinished:
		return false
	}
	return false
}

func activePlayerCount(session *GameSession) int {
	count := 0
	for i := range session.Players {
		if session.Players[i].Lives > 0 {
			count++
		}
	}
	return count
}

func allActiveAnswered(session *GameSession) bool {
	answered := false
	for i := range session.Players {
		player := &session.Players[i]
		if player.Lives <= 0 {
			continue
		}
		if player.CurrentAnswer == nil {
			return false
		}
		answered = true
	}
	return answered
}

func currentQuestion(session *GameSession) (Question, bool) {
	idx := session.CurrentQuestionIndex
	if idx < 0 || idx >= len(session.Questions) {
		return Question{}, false
	}
	return session.Questions[idx], true
}

func clearRoundState(session *GameSession) {
	for i := range session.Players {
		session.Players[i].CurrentAnswer = nil
		session.Players[i].AnswerTimestamp = nil
		session.Players[i].AnsweredCorrectlyFirst = nil
	}
}

// StartSession moves a waiting session into the first round. Host only.
func (s *Server) StartSession(sessionID string, callerID int) error {
	applied := false
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if session.Status != StatusWaiting {
			return fmt.Errorf("%w: session already started", ErrPrecondition)
		}
		if callerID != session.HostPlayerID {
			return fmt.Errorf("%w: only the host can start the session", ErrPrecondition)
		}
		if len(session.Players) == 0 {
			return fmt.Errorf("%w: no players joined", ErrPrecondition)
		}
		if len(session.Questions) == 0 {
			return fmt.Errorf("%w: no questions loaded", ErrPrecondition)
		}
		now := s.clock.Now().UTC()
		clearRoundState(session)
		session.Status = StatusPlaying
		session.CurrentQuestionIndex = 0
		session.CurrentQuestionStartTime = &now
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	s.log.Info().
		Str("session_id", session.ID).
		Int("questions", len(session.Questions)).
		Int("players", len(session.Players)).
		Msg("session started")
	if err := s.persistEvent(session, "session_started", EventPayload{Status: session.Status}); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist session start failed")
	}
	s.scheduleQuestionTimer(session)
	s.broadcastSessionUpdate(session)
	return nil
}
