package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rojanatorn/apiserver/config"
	"github.com/rojanatorn/apiserver/internal/auth"
	"github.com/rojanatorn/apiserver/internal/cache"
	"github.com/rojanatorn/apiserver/internal/db"
	"github.com/rojanatorn/apiserver/internal/directory"
	"github.com/rojanatorn/apiserver/internal/handlers"
	"github.com/rojanatorn/apiserver/internal/middleware"
	"github.com/rojanatorn/apiserver/internal/services"
	"github.com/rojanatorn/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	rdb        *redis.Client
	logger     *zap.Logger
}

// New constructs a Server with the full dependency chain wired: database,
// user directory, repositories, services, and handlers. When no Redis address
// is configured the user directory falls back to the in-memory adapter and
// caching is disabled.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	var dir directory.Directory
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		dir = directory.NewRedisDirectory(rdb)
		logger.Info("user directory: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		dir = directory.NewMemoryDirectory()
		logger.Warn("user directory: in-memory fallback, accounts are not persisted")
	}
	readCache := cache.New(rdb)

	gemstoneRepo := store.NewGemstoneRepository(dbConn)
	usageRepo := store.NewUsageRepository(dbConn)
	customerRepo := store.NewCustomerRepository(dbConn)
	manufacturingRepo := store.NewManufacturingRepository(dbConn)
	analyticsRepo := store.NewAnalyticsRepository(dbConn, gemstoneRepo)

	tokens := auth.NewTokenService(jwtSecret, cfg.JWT.Issuer, cfg.JWT.Audience,
		time.Duration(cfg.JWT.TTLMinutes)*time.Minute)

	userService := services.NewUserService(dir, tokens)
	inventoryService := services.NewInventoryService(gemstoneRepo, readCache)
	usageService := services.NewUsageService(usageRepo)
	customerService := services.NewCustomerService(customerRepo)
	manufacturingService := services.NewManufacturingService(manufacturingRepo)
	analyticsService := services.NewAnalyticsService(analyticsRepo, readCache)

	userHandler := handlers.NewUserHandler(userService, tokens)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, usageService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	manufacturingHandler := handlers.NewManufacturingHandler(manufacturingService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	healthHandler := handlers.NewHealthHandler(dbConn)

	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.AccessLog(logger),
		middleware.Metrics,
		middleware.CORS(cfg.CORSAllowedOrigins),
		chimiddleware.Timeout(60*time.Second),
	)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api", func(r chi.Router) {
		healthHandler.Router(r)
		userHandler.AnonymousRouter(r)

		r.Group(func(r chi.Router) {
			r.Use(userHandler.RequireAuth)
			userHandler.Router(r)
			inventoryHandler.Router(r)
			customerHandler.Router(r)
			manufacturingHandler.Router(r)
			analyticsHandler.Router(r)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		rdb:        rdb,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	return err
}
