package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Store holds every live session and is the only synchronization point
// between clients. Mutations that depend on previously-read state go
// through UpdateSession so they apply atomically or not at all.
type Store struct {
	mu           sync.Mutex
	clock        clockwork.Clock
	nextID       int
	nextPlayerID int
	sessions     map[string]*GameSession
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:        clock,
		nextID:       1,
		nextPlayerID: 1,
		sessions:     make(map[string]*GameSession),
	}
}

// CreateSession makes a new waiting session with the caller as host.
func (s *Store) CreateSession(hostName string, cfg SessionConfig) (*GameSession, *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("session-%d", s.nextID)
	s.nextID++
	session := &GameSession{
		ID:                   id,
		JoinCode:             newJoinCode(),
		HostToken:            uuid.NewString(),
		Config:               cfg,
		Status:               StatusWaiting,
		CurrentQuestionIndex: -1,
		CreatedAt:            s.clock.Now().UTC(),
	}
	host := Player{
		ID:     s.nextPlayerID,
		Name:   hostName,
		IsHost: true,
		Lives:  cfg.StartingLives,
	}
	s.nextPlayerID++
	session.Players = append(session.Players, host)
	session.HostPlayerID = host.ID
	s.sessions[id] = session
	return session, &session.Players[0]
}

func (s *Store) GetSession(id string) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// UpdateSession runs update under the store lock. If update returns an
// error the session is treated as unchanged; update funcs must not
// mutate before their guards have passed.
func (s *Store) UpdateSession(id string, update func(session *GameSession) error) (*GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err := update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// WithSession runs read under the store lock, so the caller sees a
// consistent session while concurrent transactions wait. The session
// must not be retained past the callback.
func (s *Store) WithSession(id string, read func(session *GameSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	read(session)
	return true
}

func (s *Store) FindSessionByJoinCode(code string) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.JoinCode == code {
			return session, true
		}
	}
	return nil, false
}

func (s *Store) UpdateSessionID(session *GameSession, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == newID {
		return
	}
	delete(s.sessions, session.ID)
	session.ID = newID
	s.sessions[newID] = session
}

// AddPlayer joins a player by session id or join code. Joining is only
// legal while the session is waiting.
func (s *Store) AddPlayer(sessionIDOrCode, name string, maxPlayers int) (*GameSession, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionIDOrCode]
	if !ok {
		for _, candidate := range s.sessions {
			if candidate.JoinCode == sessionIDOrCode {
				session = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionIDOrCode)
	}

	if session.Status != StatusWaiting {
		return nil, nil, fmt.Errorf("%w: session already started", ErrPrecondition)
	}
	if maxPlayers > 0 && len(session.Players) >= maxPlayers {
		return nil, nil, fmt.Errorf("%w: session full", ErrPrecondition)
	}
	for i := range session.Players {
		if session.Players[i].Name == name {
			return nil, nil, fmt.Errorf("%w: name already taken", ErrPrecondition)
		}
	}

	player := Player{
		ID:    s.nextPlayerID,
		Name:  name,
		Lives: session.Config.StartingLives,
	}
	s.nextPlayerID++
	session.Players = append(session.Players, player)
	return session, &session.Players[len(session.Players)-1], nil
}

// RestoreSession re-registers a session rebuilt from the journal.
func (s *Store) RestoreSession(session *GameSession) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session already running")
	}
	for _, existing := range s.sessions {
		if existing.JoinCode == session.JoinCode {
			return fmt.Errorf("session already running")
		}
	}
	s.sessions[session.ID] = session
	if id := sessionSortKey(session.ID); id >= s.nextID {
		s.nextID = id + 1
	}
	maxPlayerID := 0
	for _, player := range session.Players {
		if player.ID > maxPlayerID {
			maxPlayerID = player.ID
		}
	}
	if maxPlayerID >= s.nextPlayerID {
		s.nextPlayerID = maxPlayerID + 1
	}
	return nil
}

func (s *Store) ListSessionSummaries() []SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]SessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		list = append(list, SessionSummary{
			ID:       session.ID,
			JoinCode: session.JoinCode,
			Status:   session.Status,
			Players:  len(session.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return sessionSortKey(list[i].ID) < sessionSortKey(list[j].ID)
	})
	return list
}

func sessionSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func (s *Store) GetPlayer(sessionID string, playerID int) (*GameSession, *Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, false
	}
	for i := range session.Players {
		if session.Players[i].ID == playerID {
			return session, &session.Players[i], true
		}
	}
	return session, nil, false
}

func findPlayer(session *GameSession, playerID int) (*Player, bool) {
	for i := range session.Players {
		if session.Players[i].ID == playerID {
			return &session.Players[i], true
		}
	}
	return nil, false
}
