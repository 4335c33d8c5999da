package server

import (
	"net/http"
	"os"
	"sync"

	"quiz-clash/internal/config"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	homeWS   *homeHub
	cfg      config.Config
	clock    clockwork.Clock
	log      zerolog.Logger
	timersMu sync.Mutex
	timers   map[string]clockwork.Timer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return NewWithClock(conn, cfg, clockwork.NewRealClock())
}

func NewWithClock(conn *gorm.DB, cfg config.Config, clock clockwork.Clock) *Server {
	return &Server{
		store:  NewStore(clock),
		db:     conn,
		ws:     newWSHub(),
		homeWS: newHomeHub(),
		cfg:    cfg,
		clock:  clock,
		log:    zerolog.New(os.Stdout).With().Timestamp().Logger(),
		timers: make(map[string]clockwork.Timer),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("POST /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("GET /ws/sessions/", s.handleWebsocket)
	mux.HandleFunc("GET /ws/home", s.handleHomeWebsocket)
	return mux
}

// snapshotByID renders the client-facing view under the store lock so a
// concurrent transaction cannot mutate the session mid-render.
func (s *Server) snapshotByID(sessionID string) (map[string]any, bool) {
	var payload map[string]any
	ok := s.store.WithSession(sessionID, func(session *GameSession) {
		payload = snapshotWithClock(session, s.clock)
	})
	return payload, ok
}
