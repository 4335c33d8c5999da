package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

type homeHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func newHomeHub() *homeHub {
	return &homeHub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[sessionID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[sessionID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[sessionID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, sessionID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(sessionID string, payload any) {
	h.mu.Lock()
	group := h.groups[sessionID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(sessionID, conn)
		}
	}
}

func (h *homeHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *homeHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

func (h *homeHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *homeHub) Broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, exists := s.store.GetSession(sessionID); !exists {
		http.NotFound(w, r)
		return
	}
	role := r.URL.Query().Get("role")
	isHost := role == wsRoleHost
	if isHost && !s.authorizeHostToken(sessionID, r.URL.Query().Get("token")) {
		isHost = false
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.log.Debug().Str("session_id", sessionID).Str("remote", r.RemoteAddr).Msg("ws connected")
	s.ws.Add(sessionID, conn)
	if payload, ok := s.snapshotByID(sessionID); ok {
		s.ws.Send(conn, payload)
	}
	go s.readWS(sessionID, conn, isHost)
}

func (s *Server) authorizeHostToken(sessionID, token string) bool {
	session, ok := s.store.GetSession(sessionID)
	if !ok || token == "" {
		return false
	}
	return session.HostToken == token
}

func (s *Server) handleHomeWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.homeWS.Add(conn)
	s.homeWS.Send(conn, map[string]any{
		"sessions": s.homeSummaries(),
	})
	go s.readHomeWS(conn)
}

func (s *Server) readWS(sessionID string, conn *websocket.Conn, isHost bool) {
	defer s.ws.Remove(sessionID, conn)
	if isHost {
		defer s.endSessionFromHost(sessionID)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Debug().Str("session_id", sessionID).Err(err).Msg("ws disconnected")
			return
		}
	}
}

func (s *Server) readHomeWS(conn *websocket.Conn) {
	defer s.homeWS.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// endSessionFromHost finishes a session whose host connection dropped.
func (s *Server) endSessionFromHost(sessionID string) {
	applied := false
	session, err := s.store.UpdateSession(sessionID, func(session *GameSession) error {
		if session.Status == StatusFinished {
			return nil
		}
		clearRoundState(session)
		session.Status = StatusFinished
		session.CurrentQuestionIndex = -1
		session.CurrentQuestionStartTime = nil
		session.LastRoundResult = nil
		applied = true
		return nil
	})
	if err != nil || !applied {
		return
	}
	s.log.Info().Str("session_id", session.ID).Msg("session ended, host disconnected")
	s.cancelSessionTimer(session.ID)
	if err := s.persistEvent(session, "session_ended", EventPayload{
		Status: session.Status,
		Reason: "host_disconnected",
	}); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("persist session end failed")
	}
	s.broadcastSessionUpdate(session)
}

func (s *Server) broadcastSessionUpdate(session *GameSession) {
	if s.ws == nil {
		return
	}
	if payload, ok := s.snapshotByID(session.ID); ok {
		s.ws.Broadcast(session.ID, payload)
	}
	s.broadcastHomeUpdate()
}

func (s *Server) broadcastHomeUpdate() {
	if s.homeWS == nil {
		return
	}
	s.homeWS.Broadcast(map[string]any{
		"sessions": s.homeSummaries(),
	})
}

func (s *Server) homeSummaries() []map[string]any {
	summaries := make([]map[string]any, 0)
	for _, summary := range s.store.ListSessionSummaries() {
		summaries = append(summaries, map[string]any{
			"session_id": summary.ID,
			"join_code":  summary.JoinCode,
			"status":     string(summary.Status),
			"players":    summary.Players,
		})
	}
	return summaries
}
