package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipwave/cache"
	"clipwave/config"
	"clipwave/core/catalog"
	"clipwave/core/identity"
	"clipwave/db"
	"clipwave/logger"
	"clipwave/repository"
	"clipwave/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	// Connect to Redis. The name cache is only an accelerator for the
	// read-time identity join, so a missing Redis is not fatal.
	var nameCache *cache.NameCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, uploader name caching disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		nameCache = cache.NewNameCache(db.RedisClient, cfg.NameCacheTTL)
		logger.Info("Successfully connected to Redis")
	}

	// Connect to the object store
	gateway, err := storage.NewMinioGateway(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize MinIO gateway", logger.ErrorField(err))
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	resolver := identity.NewUserResolver(userRepo, nameCache)
	catalogService := catalog.NewService(trackRepo, gateway, resolver)

	apiHandler := NewAPIHandler(catalogService, userRepo)

	router := mux.NewRouter()

	// CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Catalog endpoints
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/mine", apiHandler.AuthMiddleware(apiHandler.GetMyTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/play", apiHandler.AuthMiddleware(apiHandler.RecordPlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads", apiHandler.AuthMiddleware(apiHandler.BeginUploadHandler)).Methods(http.MethodPost)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
