package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/ai"
	"github.com/rebuttal-io/rebuttal/internal/api"
	"github.com/rebuttal-io/rebuttal/internal/archive"
	"github.com/rebuttal-io/rebuttal/internal/auth"
	"github.com/rebuttal-io/rebuttal/internal/config"
	"github.com/rebuttal-io/rebuttal/internal/database"
	"github.com/rebuttal-io/rebuttal/internal/logging"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

const version = "0.1.0"

func main() {
	// Local development keeps secrets in .env; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting rebuttal API", zap.String("version", version), zap.String("config", *configPath))

	db, dbType, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	st := store.NewSQLStore(db, dbType)

	ttl, err := auth.ParseExpiry(cfg.Auth.JWTExpiresIn)
	if err != nil {
		logger.Fatal("invalid auth.jwtExpiresIn", zap.Error(err))
	}

	var authn auth.Authenticator
	switch cfg.Auth.Mode {
	case "session":
		sessionTTL, err := auth.ParseExpiry(cfg.Auth.SessionTTL)
		if err != nil {
			logger.Fatal("invalid auth.sessionTTL", zap.Error(err))
		}
		sm := auth.NewSessionManager(st, st, sessionTTL)
		authn = sm
		go cleanupSessions(sm, logger)
	default:
		authn = auth.NewTokenManager(cfg.Auth.JWTSecret, ttl, st)
	}

	var aiClient *ai.Client
	if cfg.AI.BaseURL != "" {
		aiClient = ai.NewClient(cfg.AI.BaseURL, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	}

	var uploader *archive.Uploader
	if cfg.Archive.Enabled {
		uploader, err = archive.NewUploader(cfg)
		if err != nil {
			logger.Fatal("failed to configure transcript archive", zap.Error(err))
		}
	}

	a, err := api.New(*cfg, st, authn, logger, aiClient, uploader)
	if err != nil {
		logger.Fatal("failed to build API", zap.Error(err))
	}

	if err := a.Serve(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// cleanupSessions prunes expired session rows hourly. Expired sessions are
// also removed lazily on access; this keeps the table from accumulating
// rows for tokens that are never presented again.
func cleanupSessions(sm *auth.SessionManager, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := sm.CleanupExpired(context.Background())
		if err != nil {
			logger.Error("session cleanup failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("cleaned up expired sessions", zap.Int64("count", n))
		}
		<-ticker.C
	}
}
