package server

import (
	"testing"
	"time"
)

func TestEvaluateSafeModeScoresAndLives(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[1], 0, "Berlin")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	ada := playerByID(t, session, ids[0])
	ben := playerByID(t, session, ids[1])
	if ada.Score != 1 || ada.Lives != 3 {
		t.Fatalf("expected correct answer to score and keep lives, got score=%d lives=%d", ada.Score, ada.Lives)
	}
	if ben.Score != 0 || ben.Lives != 2 {
		t.Fatalf("expected wrong answer to cost a life, got score=%d lives=%d", ben.Score, ben.Lives)
	}
	result := session.LastRoundResult
	if result == nil || result.QuestionIndex != 0 || result.CorrectAnswer != "Paris" {
		t.Fatalf("unexpected round result %#v", result)
	}
	if !result.Players[ids[0]].WasCorrect || result.Players[ids[0]].ScoreChange != 1 {
		t.Fatalf("unexpected result for correct player: %#v", result.Players[ids[0]])
	}
	if result.Players[ids[1]].LifeChange != -1 {
		t.Fatalf("unexpected result for wrong player: %#v", result.Players[ids[1]])
	}
}

func TestEvaluateSafeModeTimeoutKeepsLife(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	// Ben never answers; the timer closes the round instead.
	if err := srv.EvaluateRound(session.ID); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	ben := playerByID(t, session, ids[1])
	if ben.Lives != 3 {
		t.Fatalf("timeout must not cost a life, got lives=%d", ben.Lives)
	}
	entry := session.LastRoundResult.Players[ids[1]]
	if entry.SubmittedAnswer != nil || entry.LifeChange != 0 || entry.WasCorrect {
		t.Fatalf("unexpected timeout entry %#v", entry)
	}
}

func TestEvaluateFirstCorrectWins(t *testing.T) {
	srv, clock := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeFirstCorrectWins, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	clock.Advance(500 * time.Millisecond)
	submitDirect(t, srv, session.ID, ids[1], 0, "Paris")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	ada := playerByID(t, session, ids[0])
	ben := playerByID(t, session, ids[1])
	if ada.Score != 1 || ada.Lives != 3 {
		t.Fatalf("first correct should score and keep lives, got score=%d lives=%d", ada.Score, ada.Lives)
	}
	if ben.Score != 1 || ben.Lives != 2 {
		t.Fatalf("later correct should score but lose a life, got score=%d lives=%d", ben.Score, ben.Lives)
	}
	result := session.LastRoundResult
	if !result.Players[ids[0]].IsFirstCorrect || result.Players[ids[1]].IsFirstCorrect {
		t.Fatalf("expected exactly the earliest answer flagged first-correct: %#v", result.Players)
	}
	firsts := 0
	for _, entry := range result.Players {
		if entry.IsFirstCorrect {
			firsts++
		}
	}
	if firsts != 1 {
		t.Fatalf("expected exactly one first-correct entry, got %d", firsts)
	}
}

func TestEvaluateFirstCorrectTieBreaksByPlayerID(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeFirstCorrectWins, "Ada", "Ben")

	// Frozen clock: both answers carry the same timestamp.
	submitDirect(t, srv, session.ID, ids[1], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	if !session.LastRoundResult.Players[ids[0]].IsFirstCorrect {
		t.Fatalf("tie must break to the lowest player id")
	}
}

func TestEvaluateFirstCorrectNoCorrectAnswers(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeFirstCorrectWins, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Berlin")
	submitDirect(t, srv, session.ID, ids[1], 0, "Berlin")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	for _, id := range ids {
		player := playerByID(t, session, id)
		if player.Lives != 2 {
			t.Fatalf("with nobody first-correct every active player loses a life, player %d has %d", id, player.Lives)
		}
		if session.LastRoundResult.Players[id].IsFirstCorrect {
			t.Fatalf("no entry may be first-correct without a correct answer")
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[1], 0, "Berlin")
	session = waitForStatus(t, srv, session.ID, StatusShowingResults)

	before := *playerByID(t, session, ids[1])
	if err := srv.EvaluateRound(session.ID); err != nil {
		t.Fatalf("redundant evaluate must no-op, got %v", err)
	}
	after := playerByID(t, session, ids[1])
	if after.Lives != before.Lives || after.Score != before.Score {
		t.Fatalf("second evaluation changed state: before=%#v after=%#v", before, after)
	}
	if session.Status != StatusShowingResults {
		t.Fatalf("status moved unexpectedly to %s", session.Status)
	}
}

func TestEvaluateSkipsEliminatedPlayers(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben", "Cid")
	_, err := srv.store.UpdateSession(session.ID, func(session *GameSession) error {
		player, _ := findPlayer(session, ids[2])
		player.Lives = 0
		return nil
	})
	if err != nil {
		t.Fatalf("eliminate player: %v", err)
	}

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[1], 0, "Berlin")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	if _, ok := session.LastRoundResult.Players[ids[2]]; ok {
		t.Fatalf("eliminated player must not appear in round result")
	}
	if cid := playerByID(t, session, ids[2]); cid.Lives != 0 || cid.Score != 0 {
		t.Fatalf("eliminated player must be untouched, got %#v", cid)
	}
}

func TestEvaluateClearsQuestionStartTime(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[1], 0, "Paris")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	if session.CurrentQuestionStartTime != nil {
		t.Fatalf("question start time must clear when the round closes")
	}
}
