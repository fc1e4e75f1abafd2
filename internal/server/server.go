// Package server binds the socket transport to the social and chat
// services: it owns the HTTP app, the websocket upgrade, the live session
// table, and the event dispatcher.
package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"warhorse/internal/cache"
	"warhorse/internal/config"
	"warhorse/internal/database"
	"warhorse/internal/featureflags"
	"warhorse/internal/observability"
	"warhorse/internal/realtime"
	"warhorse/internal/service"
	"warhorse/internal/store"
)

// livenessBody is the response of the root endpoint.
const livenessBody = "Warhorse server is running"

// Server holds every dependency and the live session table.
//
// One coarse mutex serializes commands over the shared state (store,
// registry, rooms, session table). Plans are computed under the lock and
// emitted after it is released; socket writes go through each session's
// buffered send channel and never block a command.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          store.Store
	registry       *realtime.Registry
	rooms          *realtime.Rooms
	presence       *realtime.Presence
	notifier       *realtime.Notifier
	social         *service.Social
	chat           *service.Chat
	flags          *featureflags.Manager
	promMiddleware *fiberprometheus.FiberPrometheus

	mu       sync.Mutex
	sessions map[string]*realtime.Session

	handlers map[string]handlerFunc
	log      *observability.SocketLogger
}

// NewServer creates a server, opening the store backend and Redis named by
// the configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var (
		st store.Store
		db *gorm.DB
	)
	switch cfg.StoreBackend {
	case config.StoreMemory:
		st = store.NewMemory()
	case config.StorePostgres, config.StoreSQLite:
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		st = store.NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	cache.InitRedis(cfg.RedisURL)

	srv := NewServerWithDeps(cfg, st, cache.GetClient())
	srv.db = db
	return srv, nil
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// Used by tests and by bootstrap layers that establish the store and Redis
// themselves.
func NewServerWithDeps(cfg *config.Config, st store.Store, redisClient *redis.Client) *Server {
	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms()
	notifier := realtime.NewNotifier(redisClient)
	presence := realtime.NewPresence(redisClient, realtime.PresenceConfig{
		OnUserOnline: func(userID string) {
			notifier.PublishUserOnline(context.Background(), userID)
		},
		OnUserOffline: func(userID string) {
			notifier.PublishUserOffline(context.Background(), userID)
		},
	})

	srv := &Server{
		config:   cfg,
		redis:    redisClient,
		store:    st,
		registry: registry,
		rooms:    rooms,
		presence: presence,
		notifier: notifier,
		social:   service.NewSocial(st, registry, cfg.VerifyPasswords),
		chat:     service.NewChat(st, registry, rooms),
		flags:    featureflags.NewManager(cfg.FeatureFlags),
		sessions: make(map[string]*realtime.Session),
		log:      observability.NewSocketLogger("dispatcher"),
	}
	srv.registerHandlers()
	return srv
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	s.promMiddleware = observability.InitMetrics(app, "warhorse")
	app.Use(s.promMiddleware.Middleware)
}

// SetupRoutes mounts the liveness endpoint and the socket upgrade. The
// metrics endpoint is mounted by SetupMiddleware.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(livenessBody)
	})

	app.Use("/ws", upgradeGuard)
	app.Get("/ws", s.socketHandler())
}

// Shutdown closes every live session and releases backing resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*realtime.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*realtime.Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}

	s.presence.Stop()

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	cache.Close()
	_ = ctx
	return nil
}
