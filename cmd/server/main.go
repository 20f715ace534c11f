package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rating-engine/internal/audit"
	"rating-engine/internal/auth"
	"rating-engine/internal/config"
	"rating-engine/internal/db"
	"rating-engine/internal/elo"
	"rating-engine/internal/eventbus"
	"rating-engine/internal/handlers"
	"rating-engine/internal/leaderboard"
	"rating-engine/internal/matchmaking"
	"rating-engine/internal/middleware"
	"rating-engine/internal/services"
	"rating-engine/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	version                = "1.0.0"
	leaderboardRebuildSize = 10000
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting rating engine in %s mode", cfg.Environment)

	jwtService, err := auth.NewJWTService(cfg.JWT.ServiceSecret, time.Duration(cfg.JWT.ServiceTTL)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to configure service auth: %v", err)
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)

	// Connect to Redis (optional)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := db.ConnectRedis(redisCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	redisCancel()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Stores
	ratingStore := store.NewRatingStore(mongodb)
	roomStore := store.NewRoomStore(mongodb, cfg.RoomCapacity())
	pendingStore := store.NewPendingStore(mongodb)
	locker := store.NewLocker(mongodb)
	auditLogger := audit.New(mongodb)

	// Rating engine
	params := cfg.RatingParams()
	tiers := cfg.TierTable()
	deviation := cfg.DeviationParams()
	retryOpts := cfg.RetryOptions()

	board := leaderboard.NewService(rdb, ratingStore, tiers)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := board.Rebuild(ctx, leaderboardRebuildSize); err != nil {
			log.Printf("Warning: failed to rebuild leaderboard: %v", err)
		} else if n > 0 {
			log.Printf("Leaderboard rebuilt with %d players", n)
		}
	}()

	updater := services.NewRatingUpdateService(ratingStore, elo.NewCalculator(params), tiers, deviation, cfg.PersistenceOptions())
	updater.SetPublisher(board)
	updater.SetFailureSink(services.NewFailureRecorder(pendingStore, auditLogger, retryOpts.Backoff))

	retryWorker := services.NewRetryWorker(pendingStore, locker, updater, auditLogger, retryOpts)
	retryWorker.Start()
	defer retryWorker.Stop()

	selector := matchmaking.NewSelector(roomStore, roomStore, cfg.MatchmakingOptions())

	// Live updates
	wsHandler := handlers.NewWebSocketHandler()
	bus := eventbus.New(mongodb.WSEvents(), wsHandler.BroadcastLocal)
	bus.Start()
	defer bus.Stop()
	wsHandler.SetEventBus(bus)
	updater.SetNotifier(wsHandler)
	selector.SetRoomChangeNotifier(wsHandler.NotifyRoomCreated)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, func(r *http.Request, reason string) {
		auditLogger.LogRequest(audit.EventServiceAuthFailed, r, reason)
	})
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	matchmakingLimit := middleware.MatchmakingLimit
	if cfg.Matchmaking.RequestsPerMinute > 0 {
		matchmakingLimit.MaxRequests = cfg.Matchmaking.RequestsPerMinute
	}

	// Create handlers
	ratingHandler := handlers.NewRatingHandler(updater, ratingStore, tiers, deviation, params.InitialRating, auditLogger)
	leaderboardHandler := handlers.NewLeaderboardHandler(board)
	matchmakingHandler := handlers.NewMatchmakingHandler(selector, ratingStore, params.InitialRating)
	docsHandler := handlers.NewDocsHandler(version, auth.ScopeSubmitOutcomes, tiers.Bands())

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders())

	// WebSocket routes
	wsRouter := router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(rateLimiter.IPRateLimitMiddleware(middleware.WebSocketUpgradeLimit))
	wsRouter.HandleFunc("/ratings/{playerId}", wsHandler.HandleRatings)
	wsRouter.HandleFunc("/lobby", wsHandler.HandleLobby)

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	// Match result feed (service token)
	feedApi := api.PathPrefix("/matches").Subrouter()
	feedApi.Use(authMiddleware.RequireService(auth.ScopeSubmitOutcomes))
	feedApi.Use(rateLimiter.ServiceRateLimitMiddleware(middleware.OutcomeSubmitLimit))
	feedApi.HandleFunc("/outcome", ratingHandler.SubmitOutcome).Methods("POST")

	// Player and leaderboard lookups (public)
	playerApi := api.PathPrefix("/players").Subrouter()
	playerApi.Use(rateLimiter.IPRateLimitMiddleware(middleware.RatingLookupLimit))
	playerApi.HandleFunc("/{playerId}/rating", ratingHandler.GetRating).Methods("GET")
	playerApi.HandleFunc("/{playerId}/history", ratingHandler.GetHistory).Methods("GET")

	boardApi := api.PathPrefix("/leaderboard").Subrouter()
	boardApi.Use(rateLimiter.IPRateLimitMiddleware(middleware.RatingLookupLimit))
	boardApi.HandleFunc("", leaderboardHandler.GetLeaderboard).Methods("GET")
	boardApi.HandleFunc("/{playerId}", leaderboardHandler.GetPlayerRank).Methods("GET")

	// Matchmaking routes
	matchApi := api.PathPrefix("/matchmaking").Subrouter()
	matchApi.Use(rateLimiter.IPRateLimitMiddleware(matchmakingLimit))
	matchApi.HandleFunc("/quick-join", matchmakingHandler.QuickJoin).Methods("POST")
	matchApi.HandleFunc("/browse", matchmakingHandler.Browse).Methods("GET")

	// API Documentation
	router.HandleFunc("/docs", docsHandler.ServeAPIDocs).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
