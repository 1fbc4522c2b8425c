package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duetfm/cache"
	"duetfm/config"
	"duetfm/core/importer"
	"duetfm/core/session"
	"duetfm/db"
	"duetfm/logger"
	"duetfm/repository"
	"duetfm/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	objects, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	userRepo := repository.NewUserRepository(db.GormDB)
	profileRepo := repository.NewProfileRepository(db.GormDB)
	songRepo := repository.NewSongRepository(db.GormDB)
	favoriteRepo := repository.NewFavoriteRepository(db.GormDB)
	playRepo := repository.NewMySQLPlayRepository(db.DB)

	idleLimit := time.Duration(cfg.IdleTimeoutDays) * 24 * time.Hour
	sessions := session.NewManager(session.Options{
		Users:     userRepo,
		Profiles:  profileRepo,
		Activity:  cache.NewRedisActivityStore(cache.RedisClient, idleLimit),
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  time.Duration(cfg.TokenTTLHours) * time.Hour,
		IdleLimit: idleLimit,
	})

	apiHandler := NewAPIHandler(sessions, songRepo, playRepo, favoriteRepo, profileRepo, objects, cfg)

	router := mux.NewRouter()

	// CORS middleware.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints.
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", apiHandler.AuthMiddleware(apiHandler.LogoutHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// Library endpoints.
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.GetSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.UploadSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/songs/{id}/play", apiHandler.AuthMiddleware(apiHandler.RecordPlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}/favorite", apiHandler.AuthMiddleware(apiHandler.ToggleFavoriteHandler)).Methods(http.MethodPost)

	// Weekly highlights.
	router.HandleFunc("/api/stats/weekly", apiHandler.AuthMiddleware(apiHandler.WeeklyStatsHandler)).Methods(http.MethodGet)

	// Playback session over websocket.
	router.HandleFunc("/api/player/ws", apiHandler.PlayerWSHandler).Methods(http.MethodGet)

	httpServer.Handler = router

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startImporter(rootCtx, cfg, apiHandler, profileRepo)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// startImporter launches the drop-directory watcher when configured.
func startImporter(ctx context.Context, cfg *config.Config, apiHandler *APIHandler, profiles repository.ProfileRepository) {
	if cfg.ImportDir == "" || cfg.ImportProfileID == 0 {
		return
	}

	me, err := profiles.GetProfileByID(ctx, cfg.ImportProfileID)
	if err != nil {
		logger.Warn("import watcher disabled: profile not found",
			logger.Int64("profileId", cfg.ImportProfileID), logger.ErrorField(err))
		return
	}

	all, err := profiles.GetAllProfiles(ctx)
	if err != nil {
		logger.Warn("import watcher disabled: profiles unavailable", logger.ErrorField(err))
		return
	}
	identity := &session.Identity{Profile: me}
	for _, p := range all {
		if p.ID != me.ID {
			identity.Partner = p
			break
		}
	}

	store := apiHandler.newStore(identity)
	watcher := importer.NewWatcher(cfg.ImportDir, store)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("import watcher stopped", logger.ErrorField(err))
		}
	}()
}
