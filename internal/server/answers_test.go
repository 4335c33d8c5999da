package server

import (
	"errors"
	"sync"
	"testing"

	"quiz-clash/internal/config"

	"github.com/jonboulle/clockwork"
)

func TestSubmitAnswerRecordsTimestamp(t *testing.T) {
	srv, clock := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	want := clock.Now().UTC()
	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")

	ada := playerByID(t, session, ids[0])
	if ada.CurrentAnswer == nil || *ada.CurrentAnswer != "Paris" {
		t.Fatalf("expected recorded answer, got %#v", ada.CurrentAnswer)
	}
	if ada.AnswerTimestamp == nil || !ada.AnswerTimestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, ada.AnswerTimestamp)
	}
	if session.Status != StatusPlaying {
		t.Fatalf("one of two answers must not close the round, got %s", session.Status)
	}
}

func TestSubmitAnswerWrongPhase(t *testing.T) {
	srv, _ := newFakeClockServer()
	cfg := SessionConfig{StartingLives: 3, SecondsPerQuestion: 20, CooldownSeconds: 5, ScoringMode: ModeSafeIfCorrect}
	session, host := srv.store.CreateSession("Ada", cfg)

	err := srv.SubmitAnswer(session.ID, host.ID, 0, "Paris")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error while waiting, got %v", err)
	}
}

func TestSubmitAnswerStaleIndexRejected(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	err := srv.SubmitAnswer(session.ID, ids[0], 1, "Paris")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected stale-index rejection, got %v", err)
	}
	if ada := playerByID(t, session, ids[0]); ada.CurrentAnswer != nil {
		t.Fatalf("rejected submission must not record an answer")
	}
}

func TestSubmitAnswerAfterEvaluationRejected(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	if err := srv.EvaluateRound(session.ID); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	waitForStatus(t, srv, session.ID, StatusShowingResults)

	// The straggler's submission for the closed question index must be
	// rejected by the phase check, not applied late.
	err := srv.SubmitAnswer(session.ID, ids[1], 0, "Paris")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected late submission rejection, got %v", err)
	}
}

func TestSubmitAnswerUnknownPlayer(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, _ := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	err := srv.SubmitAnswer(session.ID, 404, 0, "Paris")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found for unknown player, got %v", err)
	}
}

func TestSubmitAnswerEliminatedPlayerRejected(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")
	_, err := srv.store.UpdateSession(session.ID, func(session *GameSession) error {
		player, _ := findPlayer(session, ids[1])
		player.Lives = 0
		return nil
	})
	if err != nil {
		t.Fatalf("eliminate player: %v", err)
	}

	if err := srv.SubmitAnswer(session.ID, ids[1], 0, "Paris"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected rejection for eliminated player, got %v", err)
	}
}

func TestSubmitAnswerOverwriteAllowedByDefault(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben")

	submitDirect(t, srv, session.ID, ids[0], 0, "Berlin")
	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")

	if ada := playerByID(t, session, ids[0]); ada.CurrentAnswer == nil || *ada.CurrentAnswer != "Paris" {
		t.Fatalf("expected overwritten answer Paris, got %#v", ada.CurrentAnswer)
	}
}

func TestSubmitAnswerOverwriteBlockedByPolicy(t *testing.T) {
	srv := NewWithClock(nil, config.Default(), clockwork.NewFakeClock())
	cfg := SessionConfig{
		StartingLives:      3,
		SecondsPerQuestion: 20,
		CooldownSeconds:    5,
		ScoringMode:        ModeSafeIfCorrect,
		AllowAnswerChange:  false,
	}
	session, host := srv.store.CreateSession("Ada", cfg)
	// Second player keeps the round open after the host answers.
	if _, _, err := srv.store.AddPlayer(session.ID, "Ben", 0); err != nil {
		t.Fatalf("add player: %v", err)
	}
	_, err := srv.store.UpdateSession(session.ID, func(session *GameSession) error {
		session.Questions = []Question{{ID: "q-1", Prompt: "Capital of France?", CorrectAnswer: "Paris"}}
		return nil
	})
	if err != nil {
		t.Fatalf("set questions: %v", err)
	}
	if err := srv.StartSession(session.ID, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	submitDirect(t, srv, session.ID, host.ID, 0, "Berlin")
	if err := srv.SubmitAnswer(session.ID, host.ID, 0, "Paris"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected resubmission rejection, got %v", err)
	}
	if got := playerByID(t, session, host.ID); *got.CurrentAnswer != "Berlin" {
		t.Fatalf("first answer must stand, got %q", *got.CurrentAnswer)
	}
}

func TestFinalAnswerTriggersEvaluation(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben", "Cid")

	submitDirect(t, srv, session.ID, ids[0], 0, "Paris")
	submitDirect(t, srv, session.ID, ids[1], 0, "Berlin")
	if session.Status != StatusPlaying {
		t.Fatalf("round must stay open until the last active player answers")
	}
	submitDirect(t, srv, session.ID, ids[2], 0, "Paris")

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	if session.LastRoundResult == nil {
		t.Fatalf("expected a round result once everyone answered")
	}
}

func TestFinalAnswerSkipsEliminatedPlayers(t *testing.T) {
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
	submitDirect(t, srv, session.ID, ids[1], 0, "Paris")

	// Only the two active players matter for the all-answered check.
	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	if session.LastRoundResult == nil {
		t.Fatalf("expected evaluation without the eliminated player's answer")
	}
}

func TestConcurrentFinalAnswersEvaluateOnce(t *testing.T) {
	srv, _ := newFakeClockServer()
	session, ids := seedSession(t, srv, ModeSafeIfCorrect, "Ada", "Ben", "Cleo", "Dan")

	// Every player lands their answer at once; the overlapping
	// all-answered checks must collapse into a single evaluation.
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(playerID int) {
			defer wg.Done()
			_ = srv.SubmitAnswer(session.ID, playerID, 0, "Paris")
		}(id)
	}
	wg.Wait()

	session = waitForStatus(t, srv, session.ID, StatusShowingResults)
	for _, id := range ids {
		player := playerByID(t, session, id)
		if player.Score != 1 {
			t.Fatalf("player %d scored %d, want exactly 1", id, player.Score)
		}
		if player.Lives != 3 {
			t.Fatalf("player %d has %d lives, want 3", id, player.Lives)
		}
	}
}
