package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tulisbareng/config/database"
	"tulisbareng/internal/collab"
	"tulisbareng/pkg/logger"
	"tulisbareng/pkg/metrics"
	"tulisbareng/router"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables from OS")
	}

	logger.Init()
	defer logger.Log.Sync()

	db := database.Connect()
	defer db.Close()

	// The collaboration services are constructed here and injected; their
	// lifecycle is tied to the process, with no ambient statics.
	m := metrics.New()
	registry := collab.NewSessionRegistry(m)
	presence := collab.NewPresenceStore()
	mailbox := collab.NewMentionMailbox()

	reaper := collab.NewReaper(registry, presence, m,
		envDuration("REAP_INTERVAL", collab.DefaultReapInterval),
		envDuration("IDLE_TIMEOUT", collab.DefaultIdleTimeout),
	)
	reaper.Start()
	defer reaper.Stop()

	mux := router.Setup(db, router.Services{
		Registry: registry,
		Presence: presence,
		Mailbox:  mailbox,
		Metrics:  m,
	})

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logger.Sugar.Infof("Collaboration backend listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Sugar.Warnf("Invalid %s %q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
