package server

import (
	"fmt"
)

// AdvanceSession moves a session out of showing_results into the next
// round, or into finished when the questions are exhausted or at most
// one active player remains. Host only. Calling it twice, or racing the
// cooldown timer against a manual advance, is harmless: the phase guard
// turns every call after the first into a no-op.
func (s *Server) AdvanceSession(sessionID string, callerID int) error {
	applied := false
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if session.Status != StatusShowingResults {
			return nil
		}
		if callerID != session.HostPlayerID {
			return fmt.Errorf("%w: only the host can advance the session", ErrPrecondition)
		}
		clearRoundState(session)
		nextIndex := session.CurrentQuestionIndex + 1
		if nextIndex >= len(session.Questions) || activePlayerCount(session) <= 1 {
			session.Status = StatusFinished
			session.CurrentQuestionIndex = -1
			session.CurrentQuestionStartTime = nil
			session.LastRoundResult = nil
		} else {
			now := s.clock.Now().UTC()
			session.Status = StatusPlaying
			session.CurrentQuestionIndex = nextIndex
			session.CurrentQuestionStartTime = &now
			session.LastRoundResult = nil
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	switch session.Status {
	case StatusFinished:
		s.log.Info().Str("session_id", session.ID).Msg("session finished")
		s.cancelSessionTimer(session.ID)
		if err := s.persistEvent(session, "session_finished", EventPayload{Status: session.Status}); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist session finish failed")
		}
	case StatusPlaying:
		s.log.Info().
			Str("session_id", session.ID).
			Int("question_index", session.CurrentQuestionIndex).
			Msg("session advanced to next question")
		s.cancelSessionTimer(session.ID)
		if err := s.persistEvent(session, "session_advanced", EventPayload{
			Status:        session.Status,
			QuestionIndex: session.CurrentQuestionIndex,
		}); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist session advance failed")
		}
		s.scheduleQuestionTimer(session)
	case StatusWaiting, StatusShowingResults:
		// Unreachable from this transition.
	}
	s.broadcastSessionUpdate(session)
	return nil
}
