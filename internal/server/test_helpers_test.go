package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-clash/internal/config"

	"github.com/jonboulle/clockwork"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func newFakeClockServer() (*Server, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewWithClock(nil, config.Default(), clock), clock
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func createSession(t *testing.T, ts *httptest.Server, extra map[string]any) (sessionID string, hostID int, hostToken string) {
	t.Helper()
	payload := map[string]any{
		"name": "Ada",
		"questions": []map[string]any{
			{"prompt": "Capital of France?", "options": []string{"Paris", "Berlin", "Rome"}, "correct_answer": "Paris"},
			{"prompt": "Capital of Italy?", "options": []string{"Paris", "Berlin", "Rome"}, "correct_answer": "Rome"},
		},
	}
	for key, value := range extra {
		payload[key] = value
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["session_id"].(string), int(body["player_id"].(float64)), body["host_token"].(string)
}

func joinPlayer(t *testing.T, ts *httptest.Server, sessionID, name string) int {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join", map[string]any{"name": name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join %s: expected status %d, got %d", name, http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return int(body["player_id"].(float64))
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, sessionID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch snapshot: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

// seedSession builds a two-question session with the given players
// directly against the store, already started on question zero.
func seedSession(t *testing.T, srv *Server, mode ScoringMode, names ...string) (*GameSession, []int) {
	t.Helper()
	if len(names) == 0 {
		t.Fatalf("seedSession needs at least one player")
	}
	cfg := SessionConfig{
		QuestionCount:      2,
		SecondsPerQuestion: 20,
		StartingLives:      3,
		CooldownSeconds:    5,
		ScoringMode:        mode,
		AllowAnswerChange:  true,
	}
	session, host := srv.store.CreateSession(names[0], cfg)
	ids := []int{host.ID}
	for _, name := range names[1:] {
		_, player, err := srv.store.AddPlayer(session.ID, name, 0)
		if err != nil {
			t.Fatalf("add player %s: %v", name, err)
		}
		ids = append(ids, player.ID)
	}
	_, err := srv.store.UpdateSession(session.ID, func(session *GameSession) error {
		session.Questions = []Question{
			{ID: "q-1", Prompt: "Capital of France?", Options: []string{"Paris", "Berlin"}, CorrectAnswer: "Paris"},
			{ID: "q-2", Prompt: "Capital of Italy?", Options: []string{"Rome", "Berlin"}, CorrectAnswer: "Rome"},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("set questions: %v", err)
	}
	if err := srv.StartSession(session.ID, host.ID); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session, ids
}

func submitDirect(t *testing.T, srv *Server, sessionID string, playerID, questionIndex int, answer string) {
	t.Helper()
	if err := srv.SubmitAnswer(sessionID, playerID, questionIndex, answer); err != nil {
		t.Fatalf("submit answer for player %d: %v", playerID, err)
	}
}

func waitForStatus(t *testing.T, srv *Server, sessionID string, want SessionStatus) *GameSession {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		session, ok := srv.store.GetSession(sessionID)
		if ok && session.Status == want {
			return session
		}
		if time.Now().After(deadline) {
			got := SessionStatus("missing")
			if ok {
				got = session.Status
			}
			t.Fatalf("session %s: expected status %s, got %s", sessionID, want, got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func playerByID(t *testing.T, session *GameSession, playerID int) *Player {
	t.Helper()
	player, ok := findPlayer(session, playerID)
	if !ok {
		t.Fatalf("player %d not in session %s", playerID, session.ID)
	}
	return player
}

func sessionPath(sessionID, action string) string {
	return fmt.Sprintf("/api/sessions/%s/%s", sessionID, action)
}
