package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"onboarding-hub/internal/advice"
	"onboarding-hub/internal/config"
	"onboarding-hub/internal/db"
	"onboarding-hub/internal/logger"
	"onboarding-hub/internal/notify"
	"onboarding-hub/internal/state"
	"onboarding-hub/internal/worker"
	"onboarding-hub/redis"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		File:        cfg.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Snapshot storage
	repo, history := openRepository(ctx, cfg)
	defer db.CloseDb()
	defer redis.CloseRedis()

	// Store, hub and the single persistence worker
	persister := worker.NewWorkerPool("persist", 1, cfg.PersistQueue)
	hub := notify.NewHub()
	store := state.NewStore(repo, hub, persister)
	store.Load(ctx)

	var generator advice.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := advice.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error().Err(err).Msg("advice proxy disabled")
		} else {
			generator = g
			log.Info().Str("model", cfg.GeminiModel).Msg("advice proxy initialized")
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, /api/gemini will return 500")
	}

	stateOpts := []state.HandlerOption{
		state.WithHeartbeat(cfg.HeartbeatInterval),
		state.WithSubscriberBuffer(cfg.SubscriberBuffer),
	}
	if history != nil {
		stateOpts = append(stateOpts, state.WithHistory(history))
	}

	rt := routes{
		state:  state.NewHandler(store, hub, stateOpts...),
		advice: advice.NewHandler(generator),
		health: newHealthHandler(cfg, generator != nil),
	}
	router := setupRouter(cfg, rt)

	// Server configuration
	server := newServer(fmt.Sprintf(":%s", cfg.ServerPort), router, rt)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.ServerPort).Str("backend", repo.Name()).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	// flush queued snapshot writes before exit
	persister.Shutdown()
	log.Info().Msg("server shutdown complete")

	if ctx.Err() == nil {
		os.Exit(1)
	}
}

// openRepository picks the snapshot backend, falling back to the state file
// when redis or postgres is unreachable.
func openRepository(ctx context.Context, cfg config.Config) (state.Repository, state.HistoryProvider) {
	switch cfg.StateBackend {
	case "redis":
		redis.InitRedis(ctx)
		if redis.RedisClient != nil {
			return state.NewRedisRepository(redis.RedisClient, cfg.RedisStateKey), nil
		}
	case "postgres":
		if err := db.ConnectDb(); err != nil {
			log.Error().Err(err).Msg("postgres unavailable")
			break
		}
		if err := db.Migrate(); err != nil {
			log.Error().Err(err).Msg("postgres migration failed")
			break
		}
		repo := state.NewGormRepository(db.AppDb)
		return repo, repo
	case "file", "":
		return state.NewFileRepository(cfg.StateFile), nil
	default:
		log.Warn().Str("backend", cfg.StateBackend).Msg("unknown state backend")
	}

	log.Warn().Str("file", cfg.StateFile).Msg("falling back to file state backend")
	return state.NewFileRepository(cfg.StateFile), nil
}
