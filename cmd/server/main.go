package main

import (
	"net/http"
	"os"

	"quiz-clash/internal/config"
	"quiz-clash/internal/db"
	"quiz-clash/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	conn := openDatabase(cfg)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	if err := srv.RestoreActiveSessions(); err != nil {
		log.Error().Err(err).Msg("session restore failed")
	}
	log.Info().Str("addr", addr).Msg("quiz-clash server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// openDatabase connects the journal if DATABASE_URL is configured.
// Without it the server runs memory-only: sessions work but do not
// survive a restart and the question bank is unavailable.
func openDatabase(cfg config.Config) *gorm.DB {
	conn, err := db.Open()
	if err != nil {
		log.Warn().Err(err).Msg("running without session journal")
		return nil
	}
	if err := db.Configure(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
		cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
		log.Fatal().Err(err).Msg("database pool configuration failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	return conn
}
