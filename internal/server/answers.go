package server

import (
	"fmt"
)

// SubmitAnswer records one player's answer for the current question.
//
// The write and the all-answered check are intentionally two separate
// steps, not one transaction: two players landing their final answers at
// the same instant can both observe "all answered" and both trigger
// evaluation. EvaluateRound's phase guard absorbs the duplicate; the
// answer write itself is protected by its own transaction and is never
// lost.
func (s *Server) SubmitAnswer(sessionID string, playerID int, questionIndex int, answer string) error {
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if !session.Status.acceptingAnswers() {
			return fmt.Errorf("%w: session is not accepting answers", ErrPrecondition)
		}
		if questionIndex != session.CurrentQuestionIndex {
			return fmt.Errorf("%w: question %d is no longer open", ErrPrecondition, questionIndex)
		}
		player, ok := findPlayer(session, playerID)
		if !ok {
			return fmt.Errorf("%w: player %d", ErrNotFound, playerID)
		}
		if player.Lives <= 0 {
			return fmt.Errorf("%w: player is out of the game", ErrPrecondition)
		}
		if player.CurrentAnswer != nil && !session.Config.AllowAnswerChange {
			return fmt.Errorf("%w: answer already submitted", ErrPrecondition)
		}
		now := s.clock.Now().UTC()
		player.CurrentAnswer = &answer
		player.AnswerTimestamp = &now
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug().
		Str("session_id", session.ID).
		Int("player_id", playerID).
		Int("question_index", questionIndex).
		Msg("answer recorded")
	s.broadcastSessionUpdate(session)

	// Post-write check: close the round as soon as the last active
	// player has answered.
	complete := false
	s.store.WithSession(sessionID, func(current *GameSession) {
		complete = current.Status == StatusPlaying &&
			current.CurrentQuestionIndex == questionIndex &&
			allActiveAnswered(current)
	})
	if complete {
		if err := s.evaluateRound(sessionID, questionIndex); err != nil {
			s.log.Error().Err(err).Str("session_id", sessionID).Msg("evaluation after final answer failed")
		}
	}
	return nil
}
