package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/pongmatch-go/internal/api"
	"github.com/mcoot/pongmatch-go/internal/factory"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
	redisstorage "github.com/mcoot/pongmatch-go/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env is fine; the real environment still applies
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env", slog.String("error", err.Error()))
	}

	cfg, err := configFromEnv(logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	app.Start()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		MatchController: app.MatchController,
		RankService:     app.RankService,
		MatchLogs:       app.MatchLogs,
		Storage:         app.Storage,
		HubManager:      app.HubManager,
		Gateway:         app.Gateway,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(func() {
		app.HubManager.Shutdown()
		app.Gateway.CloseAll()
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-server.Ready():
		logger.Info("server started", slog.String("addr", server.Addr()))
	case err := <-errCh:
		// Handled below
		errCh <- err
	case <-ctx.Done():
	}

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("failed to close application", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	os.Exit(exitCode)
}

// configFromEnv builds the factory config from environment variables
func configFromEnv(logger *slog.Logger) (factory.Config, error) {
	cfg := factory.Config{
		Logger:       logger,
		StorageType:  os.Getenv("STORAGE_TYPE"),
		MatchLogType: os.Getenv("MATCHLOG_TYPE"),
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			return cfg, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	switch cfg.MatchLogType {
	case factory.MatchLogTypePostgres:
		cfg.MatchLogDSN = os.Getenv("DATABASE_URL")
		if cfg.MatchLogDSN == "" {
			return cfg, errors.New("DATABASE_URL required when MATCHLOG_TYPE=postgres")
		}
	case factory.MatchLogTypeSQLite:
		cfg.MatchLogDSN = os.Getenv("SQLITE_PATH")
		if cfg.MatchLogDSN == "" {
			cfg.MatchLogDSN = "pongmatch.db"
		}
	}

	sim := simulation.DefaultConfig()
	if raw := os.Getenv("TICK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid TICK_INTERVAL %q", raw)
		}
		sim.TickInterval = d
	}
	if raw := os.Getenv("WARMUP_FRAMES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid WARMUP_FRAMES %q", raw)
		}
		sim.WarmupFrames = n
	}
	cfg.SimulationConfig = sim

	return cfg, nil
}
