package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/caseboard/caseboard/internal/config"
	"github.com/caseboard/caseboard/internal/dependencies/clock"
	"github.com/caseboard/caseboard/internal/dependencies/random"
	"github.com/caseboard/caseboard/internal/services/room"
	"github.com/caseboard/caseboard/internal/services/session"
	"github.com/caseboard/caseboard/internal/storage"
	"github.com/caseboard/caseboard/internal/storage/memory"
	redisstorage "github.com/caseboard/caseboard/internal/storage/redis"
	sqlitestorage "github.com/caseboard/caseboard/internal/storage/sqlite"
	"github.com/caseboard/caseboard/internal/ws"
)

// App contains all wired application components. Everything is explicitly
// constructed here; there is no package-level state, so tests get fresh
// instances by calling New again.
type App struct {
	Store       storage.RoomStore
	Rooms       *room.Repository
	Registry    *session.Registry
	Hub         *ws.Hub
	Coordinator *session.Coordinator
	WSHandler   *ws.Handler

	Clock  clock.Clock
	Random random.Random

	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger; a no-op logger is used if nil
	Logger *slog.Logger
	// StorageType selects the durable store backend; defaults to memory
	StorageType string
	// SQLitePath is the database file (required for sqlite storage)
	SQLitePath string
	// RedisConfig holds redis settings (required for redis storage)
	RedisConfig *redisstorage.Config
	// CacheTTL overrides the room cache TTL; zero keeps the default
	CacheTTL time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	var store storage.RoomStore
	var closer io.Closer
	switch storageType {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlitestorage.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
		closer = sqliteStore
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closer = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'sqlite' or 'redis'")
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg.CacheTTL, logger)
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for
// testing)
func newWithDependencies(
	store storage.RoomStore,
	clk clock.Clock,
	rnd random.Random,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *App {
	rooms := room.NewRepository(store, clk, rnd, cacheTTL, logger)
	registry := session.NewRegistry()
	hub := ws.NewHub(logger)
	coordinator := session.NewCoordinator(rooms, registry, hub, clk, logger)
	wsHandler := ws.NewHandler(hub, coordinator, logger)

	return &App{
		Store:       store,
		Rooms:       rooms,
		Registry:    registry,
		Hub:         hub,
		Coordinator: coordinator,
		WSHandler:   wsHandler,
		Clock:       clk,
		Random:      rnd,
	}
}

// Initialize warms the room cache from the durable store; call once before
// serving traffic
func (a *App) Initialize(ctx context.Context) error {
	return a.Rooms.LoadFromStore(ctx)
}

// Shutdown drains in-flight persistence work and releases the store
func (a *App) Shutdown() error {
	a.Rooms.Wait()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
