package server

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// One timer is armed per session at a time: the question countdown while
// playing, the cooldown while showing results. Each callback captures
// the state it was armed for and re-checks it inside the transaction, so
// a timer that fires after the phase has already moved on does nothing.

func (s *Server) scheduleQuestionTimer(session *GameSession) {
	duration := time.Duration(session.Config.SecondsPerQuestion) * time.Second
	if duration <= 0 {
		s.cancelSessionTimer(session.ID)
		return
	}
	sessionID := session.ID
	armedIndex := session.CurrentQuestionIndex
	s.timersMu.Lock()
	if existing, ok := s.timers[sessionID]; ok {
		existing.Stop()
	}
	s.timers[sessionID] = s.clock.AfterFunc(duration, func() {
		s.questionTimeElapsed(sessionID, armedIndex)
	})
	s.timersMu.Unlock()
}

func (s *Server) scheduleCooldownTimer(session *GameSession) {
	duration := time.Duration(session.Config.CooldownSeconds) * time.Second
	sessionID := session.ID
	hostID := session.HostPlayerID
	if duration <= 0 {
		// Zero cooldown advances on the spot.
		go s.cooldownElapsed(sessionID, hostID)
		return
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[sessionID]; ok {
		existing.Stop()
	}
	s.timers[sessionID] = s.clock.AfterFunc(duration, func() {
		s.cooldownElapsed(sessionID, hostID)
	})
	s.timersMu.Unlock()
}

func (s *Server) cancelSessionTimer(sessionID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
		delete(s.timers, sessionID)
	}
}

func (s *Server) questionTimeElapsed(sessionID string, armedIndex int) {
	if err := s.evaluateRound(sessionID, armedIndex); err != nil {
		s.log.Error().Err(err).
			Str("session_id", sessionID).
			Int("question_index", armedIndex).
			Msg("evaluation on question timeout failed")
		return
	}
	s.log.Debug().
		Str("session_id", sessionID).
		Int("question_index", armedIndex).
		Msg("question timer fired")
}

func (s *Server) cooldownElapsed(sessionID string, hostID int) {
	if err := s.AdvanceSession(sessionID, hostID); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("advance on cooldown failed")
		return
	}
	s.log.Debug().Str("session_id", sessionID).Msg("cooldown timer fired")
}

// RemainingSeconds derives the local countdown from the authoritative
// question start time; clients do the same from the snapshot.
func RemainingSeconds(session *GameSession, clock clockwork.Clock) int {
	if session.Status != StatusPlaying || session.CurrentQuestionStartTime == nil {
		return 0
	}
	deadline := session.CurrentQuestionStartTime.Add(time.Duration(session.Config.SecondsPerQuestion) * time.Second)
	remaining := deadline.Sub(clock.Now().UTC())
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}
