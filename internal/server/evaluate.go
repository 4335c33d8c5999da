package server

import (
	"fmt"
	"sort"
)

// EvaluateRound scores the current question and moves the session into
// showing_results. Safe to call any number of times: the phase guard
// makes every call after the first a no-op, which is what makes the
// timer-expiry and last-answer triggers safe to race.
func (s *Server) EvaluateRound(sessionID string) error {
	return s.evaluateRound(sessionID, -1)
}

// evaluateRound applies the round evaluation transaction. A non-negative
// expectIndex restricts the evaluation to the question it was armed for,
// so a stale timer cannot close a later round.
func (s *Server) evaluateRound(sessionID string, expectIndex int) error {
	applied := false
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if session.Status != StatusPlaying {
			return nil
		}
		if expectIndex >= 0 && expectIndex != session.CurrentQuestionIndex {
			return nil
		}
		question, ok := currentQuestion(session)
		if !ok {
			return fmt.Errorf("no question at index %d", session.CurrentQuestionIndex)
		}
		result := scoreRound(session, question)
		session.LastRoundResult = &result
		session.Status = StatusShowingResults
		session.CurrentQuestionStartTime = nil
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
		Int("question_index", session.LastRoundResult.QuestionIndex).
		Int("active_players", activePlayerCount(session)).
		Msg("round evaluated")
	s.cancelSessionTimer(session.ID)
	if err := s.persistRoundResult(session, session.LastRoundResult); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist round result failed")
	}
	s.scheduleCooldownTimer(session)
	s.broadcastSessionUpdate(session)
	return nil
}

// scoreRound mutates player lives/scores for one round and returns the
// per-player detail. Players already at zero lives are untouched.
func scoreRound(session *GameSession, question Question) RoundResult {
	result := RoundResult{
		QuestionIndex: session.CurrentQuestionIndex,
		CorrectAnswer: question.CorrectAnswer,
		Players:       make(map[int]PlayerRoundResult),
	}

	firstCorrectID := 0
	if session.Config.ScoringMode == ModeFirstCorrectWins {
		firstCorrectID = firstCorrectPlayerID(session, question)
	}

	for i := range session.Players {
		player := &session.Players[i]
		if player.Lives <= 0 {
			continue
		}
		correct := player.CurrentAnswer != nil && *player.CurrentAnswer == question.CorrectAnswer
		entry := PlayerRoundResult{
			SubmittedAnswer: player.CurrentAnswer,
			WasCorrect:      correct,
		}
		switch session.Config.ScoringMode {
		case ModeFirstCorrectWins:
			if correct {
				entry.ScoreChange = 1
				isFirst := player.ID == firstCorrectID
				entry.IsFirstCorrect = isFirst
				player.AnsweredCorrectlyFirst = &isFirst
			}
			// Correctness alone does not protect a life here;
			// only being first does.
			if player.ID != firstCorrectID {
				entry.LifeChange = -1
			}
		default: // ModeSafeIfCorrect
			if correct {
				entry.ScoreChange = 1
			} else if player.CurrentAnswer != nil {
				// A timeout never costs a life, a wrong answer does.
				entry.LifeChange = -1
			}
		}
		player.Score += entry.ScoreChange
		player.Lives += entry.LifeChange
		if player.Lives < 0 {
			player.Lives = 0
		}
		result.Players[player.ID] = entry
	}
	return result
}

// firstCorrectPlayerID picks the active player with the earliest correct
// answer, ties broken by lowest player id. Zero means no correct answer.
func firstCorrectPlayerID(session *GameSession, question Question) int {
	type candidate struct {
		id int
		at int64
	}
	candidates := make([]candidate, 0, len(session.Players))
	for i := range session.Players {
		player := &session.Players[i]
		if player.Lives <= 0 || player.CurrentAnswer == nil || player.AnswerTimestamp == nil {
			continue
		}
		if *player.CurrentAnswer != question.CorrectAnswer {
			continue
		}
		candidates = append(candidates, candidate{id: player.ID, at: player.AnswerTimestamp.UnixNano()})
	}
	if len(candidates) == 0 {
		return 0
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].at != candidates[j].at {
			return candidates[i].at < candidates[j].at
		}
		return candidates[i].id < candidates[j].id
	})
	return candidates[0].id
}
