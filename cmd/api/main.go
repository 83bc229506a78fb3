package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
	"enhancer/internal/edit"
	"enhancer/internal/enhance"
	"enhancer/internal/http/handlers"
	"enhancer/internal/http/httpapi"
	"enhancer/internal/infra"
	"enhancer/internal/notify"
	"enhancer/internal/storage"
	"enhancer/internal/store/memory"
	"enhancer/internal/store/postgres"
	"enhancer/internal/usage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Record store: Postgres when configured, volatile memory otherwise.
	var store domain.Store
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		store = pg
	} else {
		store = memory.New()
		logger.Warn().Msg("DATABASE_URL not set, records are kept in memory")
	}

	files, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage directory")
	}

	registry := notify.NewRegistry(logger)
	recorder := audit.NewRecorder(logger)
	gate := usage.NewGate(store)
	enhancer := enhance.NewClient(enhance.Options{
		BaseURL: cfg.EnhanceBaseURL,
		APIKey:  cfg.EnhanceAPIKey,
	})

	executor := edit.NewExecutor(store, files, enhancer, registry, gate, recorder, logger)
	pool := edit.NewPool(cfg.EditWorkers, cfg.EditQueueSize, logger)
	edits := edit.NewService(store, executor, pool, recorder)

	app := &handlers.App{
		Store:     store,
		Files:     files,
		Edits:     edits,
		Registry:  registry,
		Audit:     recorder,
		Logger:    logger,
		JWTSecret: cfg.JWTSecret,
	}

	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	pool.Stop()
	logger.Info().Msg("server stopped")
}
