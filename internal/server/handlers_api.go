package server

import (
	"errors"
	"io"
	"net/http"
)

type createSessionRequest struct {
	Name               string              `json:"name"`
	Category           string              `json:"category"`
	QuestionCount      int                 `json:"question_count"`
	SecondsPerQuestion int                 `json:"seconds_per_question"`
	StartingLives      int                 `json:"starting_lives"`
	CooldownSeconds    int                 `json:"cooldown_seconds"`
	ScoringMode        string              `json:"scoring_mode"`
	AllowAnswerChange  *bool               `json:"allow_answer_change"`
	Questions          []questionPayloadIn `json:"questions"`
}

type questionPayloadIn struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type setQuestionsRequest struct {
	PlayerID  int                 `json:"player_id"`
	HostToken string              `json:"host_token"`
	Questions []questionPayloadIn `json:"questions"`
}

type startRequest struct {
	PlayerID  int    `json:"player_id"`
	HostToken string `json:"host_token"`
}

type answerRequest struct {
	PlayerID      int    `json:"player_id"`
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

type advanceRequest struct {
	PlayerID  int    `json:"player_id"`
	HostToken string `json:"host_token"`
}

type evaluateRequest struct {
	PlayerID  int    `json:"player_id"`
	HostToken string `json:"host_token"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := s.sessionConfigFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var questions []Question
	if len(req.Questions) > 0 {
		questions, err = validateQuestions(req.Questions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if cfg.Category != "" {
		questions, err = s.drawQuestionsFromBank(cfg.Category, cfg.QuestionCount)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load questions")
			return
		}
	}

	session, host := s.store.CreateSession(name, cfg)
	if len(questions) > 0 {
		_, err = s.store.UpdateSession(session.ID, func(session *GameSession) error {
			session.Questions = questions
			return nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load questions")
			return
		}
	}
	if err := s.persistSession(session); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist session failed")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if _, err := s.persistPlayer(session, host); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist host failed")
	}
	s.log.Info().
		Str("session_id", session.ID).
		Str("join_code", session.JoinCode).
		Str("scoring_mode", string(cfg.ScoringMode)).
		Msg("session created")
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"join_code":  session.JoinCode,
		"player_id":  host.ID,
		"host_token": session.HostToken,
	})
	s.broadcastHomeUpdate()
}

func (s *Server) sessionConfigFromRequest(req createSessionRequest) (SessionConfig, error) {
	cfg := SessionConfig{
		QuestionCount:      s.cfg.QuestionCount,
		SecondsPerQuestion: s.cfg.SecondsPerQuestion,
		StartingLives:      s.cfg.StartingLives,
		CooldownSeconds:    s.cfg.CooldownSeconds,
		AllowAnswerChange:  s.cfg.AllowAnswerChange,
	}
	mode, err := validateScoringMode(req.ScoringMode)
	if err != nil {
		return SessionConfig{}, err
	}
	if req.ScoringMode == "" {
		mode, err = validateScoringMode(s.cfg.ScoringMode)
		if err != nil {
			return SessionConfig{}, err
		}
	}
	cfg.ScoringMode = mode
	category, err := validateCategory(req.Category)
	if err != nil {
		return SessionConfig{}, err
	}
	cfg.Category = category
	if req.QuestionCount > 0 {
		cfg.QuestionCount = req.QuestionCount
	}
	if req.SecondsPerQuestion > 0 {
		cfg.SecondsPerQuestion = req.SecondsPerQuestion
	}
	if req.StartingLives > 0 {
		cfg.StartingLives = req.StartingLives
	}
	if req.CooldownSeconds > 0 {
		cfg.CooldownSeconds = req.CooldownSeconds
	}
	if req.AllowAnswerChange != nil {
		cfg.AllowAnswerChange = *req.AllowAnswerChange
	}
	return cfg, nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.homeSummaries(),
	})
}

func (s *Server) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	sessionID, action, ok := parseSessionPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetSession(w, r, sessionID)
		case "results":
			s.handleResults(w, r, sessionID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoinSession(w, r, sessionID)
		case "questions":
			s.handleSetQuestions(w, r, sessionID)
		case "start":
			s.handleStartSession(w, r, sessionID)
		case "answers":
			s.handleSubmitAnswer(w, r, sessionID)
		case "evaluate":
			s.handleEvaluate(w, r, sessionID)
		case "advance":
			s.handleAdvance(w, r, sessionID)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, ok := s.store.GetSession(sessionID)
	if !ok {
		session, ok = s.store.FindSessionByJoinCode(sessionID)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	payload, ok := s.snapshotByID(session.ID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, player, err := s.store.AddPlayer(sessionID, name, s.cfg.MaxPlayers)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	if _, err := s.persistPlayer(session, player); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist player failed")
	}
	s.log.Info().
		Str("session_id", session.ID).
		Int("player_id", player.ID).
		Str("name", player.Name).
		Msg("player joined")
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"player_id":  player.ID,
	})
	s.broadcastSessionUpdate(session)
}

func (s *Server) handleSetQuestions(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req setQuestionsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	questions, err := validateQuestions(req.Questions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if err := requireHost(session, req.PlayerID, req.HostToken); err != nil {
			return err
		}
		if session.Status != StatusWaiting {
			return errPreconditionf("questions are fixed once the session starts")
		}
		session.Questions = questions
		return nil
	})
	if err != nil {
		writeOperationError(w, err)
		return
	}
	if err := s.persistQuestions(session); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist questions failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     session.ID,
		"question_count": len(session.Questions),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req startRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.authorizeHost(sessionID, req.PlayerID, req.HostToken); err != nil {
		writeOperationError(w, err)
		return
	}
	if err := s.StartSession(sessionID, req.PlayerID); err != nil {
		writeOperationError(w, err)
		return
	}
	payload, ok := s.snapshotByID(sessionID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req answerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := validateAnswer(req.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SubmitAnswer(sessionID, req.PlayerID, req.QuestionIndex, answer); err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     sessionID,
		"player_id":      req.PlayerID,
		"question_index": req.QuestionIndex,
	})
}

// handleEvaluate is the force-evaluate escape hatch for a wedged round.
// The host may trigger it at any time; anyone else only once the
// question deadline has passed, which closes the round no earlier than
// the timer would have. The evaluation guard makes redundant calls
// harmless either way.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req evaluateRequest
	if err := readJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	allowed := false
	found := s.store.WithSession(sessionID, func(session *GameSession) {
		if requireHost(session, req.PlayerID, req.HostToken) == nil {
			allowed = true
			return
		}
		allowed = session.Status != StatusPlaying || RemainingSeconds(session, s.clock) <= 0
	})
	if !found {
		http.NotFound(w, r)
		return
	}
	if !allowed {
		writeOperationError(w, errPreconditionf("only the host can force evaluation before the deadline"))
		return
	}
	if err := s.EvaluateRound(sessionID); err != nil {
		writeOperationError(w, err)
		return
	}
	payload, ok := s.snapshotByID(sessionID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req advanceRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.authorizeHost(sessionID, req.PlayerID, req.HostToken); err != nil {
		writeOperationError(w, err)
		return
	}
	if err := s.AdvanceSession(sessionID, req.PlayerID); err != nil {
		writeOperationError(w, err)
		return
	}
	payload, ok := s.snapshotByID(sessionID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request, sessionID string) {
	var payload map[string]any
	found := s.store.WithSession(sessionID, func(session *GameSession) {
		payload = map[string]any{
			"session_id": session.ID,
			"status":     string(session.Status),
			"scoreboard": scoreboardPayload(session),
		}
	})
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// authorizeHost checks the capability token issued at creation; the
// self-reported player id alone is not enough for host-only operations.
func (s *Server) authorizeHost(sessionID string, playerID int, token string) error {
	session, ok := s.store.GetSession(sessionID)
	if !ok {
		return errNotFoundf("session %s", sessionID)
	}
	return requireHost(session, playerID, token)
}

func requireHost(session *GameSession, playerID int, token string) error {
	if playerID != session.HostPlayerID {
		return errPreconditionf("only the host can perform this action")
	}
	if token != session.HostToken {
		return errPreconditionf("invalid host token")
	}
	return nil
}
