package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pashneal/stourney-platform/internal/arena"
	"github.com/pashneal/stourney-platform/internal/auth"
	"github.com/pashneal/stourney-platform/internal/httpserver"
	"github.com/pashneal/stourney-platform/internal/queue"
	"github.com/pashneal/stourney-platform/internal/registry"
	"github.com/pashneal/stourney-platform/internal/storage"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(envStr("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(envStr("DATABASE_PATH", "./data/arena.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	store := storage.NewSQLite(db)

	// Single consumer goroutine: the only writer the database ever sees.
	q := queue.New(envInt("QUEUE_CAPACITY", queue.DefaultCapacity))
	consumer := queue.NewConsumer(store, log.With().Str("component", "queue").Logger())
	go consumer.Run(context.Background(), q)

	reg := registry.New()
	machine := arena.NewMachine(
		auth.FromEnv(),
		reg,
		q,
		envStr("PUBLIC_HOST", "http://localhost:5173"),
		log.With().Str("component", "arena").Logger(),
	)

	srv := httpserver.New(machine, reg, q, store, envDur("ARENA_IDLE_TIMEOUT", httpserver.DefaultIdleTimeout))
	port := envStr("PORT", "3031")
	log.Info().Str("port", port).Msg("starting arena server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// ------------------------------ env helpers --------------------------------

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
