package server

import (
	"sort"

	"github.com/jonboulle/clockwork"
)

// snapshotWithClock renders the client-facing view of a session. The
// correct answer is withheld while the question is open and only
// revealed through the round result.
func snapshotWithClock(session *GameSession, clock clockwork.Clock) map[string]any {
	payload := map[string]any{
		"session_id":           session.ID,
		"join_code":            session.JoinCode,
		"status":               string(session.Status),
		"host_player_id":       session.HostPlayerID,
		"scoring_mode":         string(session.Config.ScoringMode),
		"seconds_per_question": session.Config.SecondsPerQuestion,
		"cooldown_seconds":     session.Config.CooldownSeconds,
		"question_count":       len(session.Questions),
		"players":              playersPayload(session),
		"scoreboard":           scoreboardPayload(session),
	}

	switch session.Status {
	case StatusWaiting:
		payload["current_question_index"] = -1
	case StatusPlaying:
		payload["current_question_index"] = session.CurrentQuestionIndex
		payload["remaining_seconds"] = RemainingSeconds(session, clock)
		if session.CurrentQuestionStartTime != nil {
			payload["question_started_at"] = session.CurrentQuestionStartTime
		}
		if question, ok := currentQuestion(session); ok {
			payload["question"] = questionPayload(question, false)
		}
	case StatusShowingResults:
		payload["current_question_index"] = session.CurrentQuestionIndex
		if question, ok := currentQuestion(session); ok {
			payload["question"] = questionPayload(question, true)
		}
		if session.LastRoundResult != nil {
			payload["round_result"] = roundResultPayload(session.LastRoundResult)
		}
	case StatusFinished:
		payload["current_question_index"] = -1
	}
	return payload
}

func questionPayload(question Question, revealAnswer bool) map[string]any {
	entry := map[string]any{
		"id":       question.ID,
		"category": question.Category,
		"type":     question.Type,
		"prompt":   question.Prompt,
		"options":  question.Options,
	}
	if revealAnswer {
		entry["correct_answer"] = question.CorrectAnswer
	}
	return entry
}

func playersPayload(session *GameSession) []map[string]any {
	players := make([]map[string]any, 0, len(session.Players))
	for i := range session.Players {
		player := &session.Players[i]
		players = append(players, map[string]any{
			"id":       player.ID,
			"name":     player.Name,
			"is_host":  player.IsHost,
			"lives":    player.Lives,
			"score":    player.Score,
			"answered": player.CurrentAnswer != nil,
		})
	}
	return players
}

func scoreboardPayload(session *GameSession) []map[string]any {
	ranked := make([]*Player, 0, len(session.Players))
	for i := range session.Players {
		ranked = append(ranked, &session.Players[i])
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Lives != ranked[j].Lives {
			return ranked[i].Lives > ranked[j].Lives
		}
		return ranked[i].ID < ranked[j].ID
	})
	board := make([]map[string]any, 0, len(ranked))
	for rank, player := range ranked {
		board = append(board, map[string]any{
			"rank":      rank + 1,
			"player_id": player.ID,
			"name":      player.Name,
			"score":     player.Score,
			"lives":     player.Lives,
		})
	}
	return board
}

func roundResultPayload(result *RoundResult) map[string]any {
	players := make(map[int]map[string]any, len(result.Players))
	for playerID, entry := range result.Players {
		item := map[string]any{
			"was_correct":      entry.WasCorrect,
			"score_change":     entry.ScoreChange,
			"life_change":      entry.LifeChange,
			"is_first_correct": entry.IsFirstCorrect,
		}
		if entry.SubmittedAnswer != nil {
			item["submitted_answer"] = *entry.SubmittedAnswer
		}
		players[playerID] = item
	}
	return map[string]any{
		"question_index": result.QuestionIndex,
		"correct_answer": result.CorrectAnswer,
		"players":        players,
	}
}
