package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/dependencies/random"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/gateway"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/matchlog/gormlog"
	matchlogmemory "github.com/mcoot/pongmatch-go/internal/matchlog/memory"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
	"github.com/mcoot/pongmatch-go/internal/services/housekeeping"
	"github.com/mcoot/pongmatch-go/internal/services/match"
	"github.com/mcoot/pongmatch-go/internal/services/matchmaking"
	"github.com/mcoot/pongmatch-go/internal/services/rank"
	"github.com/mcoot/pongmatch-go/internal/services/recorder"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
	"github.com/mcoot/pongmatch-go/internal/sse"
	"github.com/mcoot/pongmatch-go/internal/storage"
	"github.com/mcoot/pongmatch-go/internal/storage/memory"
	redisstorage "github.com/mcoot/pongmatch-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Match log type constants
const (
	MatchLogTypeMemory   = "memory"
	MatchLogTypePostgres = gormlog.DriverPostgres
	MatchLogTypeSQLite   = gormlog.DriverSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage   storage.Storage
	MatchLogs matchlog.Gateway

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService     *auth.Service
	RankService     *rank.Service
	Recorder        *recorder.Recorder
	Engine          *simulation.Engine
	MatchController *match.Controller
	HubManager      *sse.HubManager
	Gateway         *gateway.Gateway
	Housekeeping    *housekeeping.Scheduler

	// Events receives every match event before the SSE hubs and sockets
	Events *events.Fanout

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// SimulationConfig sets the tick rate and warm-up (optional)
	// If zero value, defaults to simulation.DefaultConfig()
	SimulationConfig simulation.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// MatchLogType selects the match log backend ("memory", "postgres" or "sqlite")
	// If empty, defaults to "memory"
	MatchLogType string
	// MatchLogDSN is the database connection string for postgres or sqlite
	MatchLogDSN string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Create the match log based on type
	var matchLogs matchlog.Gateway
	switch cfg.MatchLogType {
	case "", MatchLogTypeMemory:
		matchLogs = matchlogmemory.New(clk, rnd)
	case MatchLogTypePostgres, MatchLogTypeSQLite:
		if cfg.MatchLogDSN == "" {
			return nil, fmt.Errorf("MatchLogDSN required when MatchLogType is %s", cfg.MatchLogType)
		}
		gw, err := gormlog.Open(gormlog.Config{Driver: cfg.MatchLogType, DSN: cfg.MatchLogDSN}, clk, logger)
		if err != nil {
			return nil, err
		}
		matchLogs = gw
	default:
		return nil, errors.New("invalid MatchLogType: must be 'memory', 'postgres' or 'sqlite'")
	}

	// Use default configs if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}
	simCfg := cfg.SimulationConfig
	if simCfg.TickInterval == 0 {
		simCfg = simulation.DefaultConfig()
	}

	return newWithDependencies(store, matchLogs, clk, rnd, authCfg, simCfg, logger)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	matchLogs matchlog.Gateway,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	simCfg simulation.Config,
	logger *slog.Logger,
) (*App, error) {
	hubManager := sse.NewHubManager(logger)
	publisher := events.NewFanout(sse.NewBroadcaster(hubManager, logger))

	authService := auth.New(store, clk, rnd, authCfg, logger)
	rankService := rank.New(store, rank.DefaultConfig(), logger)
	rec := recorder.New(matchLogs, recorder.DefaultConfig(), logger)
	engine := simulation.New(simCfg, publisher, clk, logger)
	controller := match.NewController(
		match.DefaultConfig(),
		match.NewRegistry(),
		matchmaking.New(logger),
		engine,
		publisher,
		authService,
		store,
		rec,
		rankService,
		clk,
		rnd,
		logger,
	)

	gw := gateway.New(gateway.DefaultConfig(), controller, logger)
	publisher.Subscribe(gw)

	scheduler, err := housekeeping.New(
		housekeeping.DefaultConfig(),
		authService,
		controller,
		store,
		rec,
		clk,
		logger,
	)
	if err != nil {
		return nil, err
	}
	if err := scheduler.AddHubSweep(hubManager); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	return &App{
		Storage:         store,
		MatchLogs:       matchLogs,
		Clock:           clk,
		Random:          rnd,
		AuthService:     authService,
		RankService:     rankService,
		Recorder:        rec,
		Engine:          engine,
		MatchController: controller,
		HubManager:      hubManager,
		Gateway:         gw,
		Housekeeping:    scheduler,
		Events:          publisher,
		Logger:          logger,
	}, nil
}

// Start launches the background jobs
func (a *App) Start() {
	a.Housekeeping.Start()
}

// Close stops every room and background job, flushes pending match logs and
// releases storage connections
func (a *App) Close() error {
	var errs []error
	if err := a.Housekeeping.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("housekeeping: %w", err))
	}
	a.Engine.Shutdown()
	a.MatchController.Wait()
	a.Recorder.Wait()
	a.HubManager.Shutdown()

	for _, c := range []any{a.MatchLogs, a.Storage} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
