package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jollofwars/internal/analytics"
	"jollofwars/internal/broadcast"
	"jollofwars/internal/config"
	"jollofwars/internal/db"
	"jollofwars/internal/events"
	"jollofwars/internal/game"
	"jollofwars/internal/gamestate"
	"jollofwars/internal/kv"
	"jollofwars/internal/metrics"
	"jollofwars/internal/sessions"
)

func Run() error {
	appCfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional key-value store
	var store *kv.Client
	if appCfg.RedisURL != "" {
		client, err := kv.Connect(ctx, appCfg.RedisURL, appCfg.StoreTimeout)
		if err != nil {
			log.Printf("[Redis] Failed to connect: %v (running without store)\n", err)
		} else {
			store = client
			defer store.Close()
		}
	} else {
		log.Println("[Redis] REDIS_URL not set, running without store")
	}

	bus := events.NewBus()
	srv := &Server{
		KV:        store,
		GameState: gamestate.New(store),
		Analytics: analytics.NewService(store, analytics.Options{
			ListTTL: appCfg.LeaderboardCacheTTL,
			BestTTL: appCfg.UserCacheTTL,
			Bus:     bus,
		}),
		Bus:           bus,
		Feed:          broadcast.NewBroadcaster(bus),
		GameConfig:    gameConfig(appCfg),
		SubmitLimiter: NewRateLimiter(appCfg.SubmitRatePerMin, appCfg.SubmitBurst),
	}
	srv.Analytics.Start()
	defer srv.Analytics.Stop()

	// Optional database connection
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else {
			if err := database.Migrate(); err != nil {
				log.Printf("[DB] Migration failed: %v\n", err)
			}
			defer database.Close()
			srv.DB = database
			srv.ActionBuffer = make(chan db.ActionEvent, 1000)
			go db.RunActionWriter(ctx, database, srv.ActionBuffer)
			log.Println("[DB] Database connected and migrations applied")
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, running without database")
	}

	srv.Sessions = sessions.NewStore(srv.GameState, sessions.Options{
		Config:       srv.GameConfig,
		TickInterval: appCfg.TickInterval,
		IdleTTL:      appCfg.SessionIdleTTL,
		OnAction:     srv.recordAction,
		OnFinish:     srv.finishGame,
	})
	go srv.Sessions.Run(ctx)

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v\n", err)
		}
	}()

	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func gameConfig(appCfg config.Config) game.Config {
	cfg := game.DefaultConfig()
	if appCfg.RoundDuration > 0 {
		cfg.RoundDuration = float64(appCfg.RoundDuration)
	}
	if appCfg.CountdownDuration > 0 {
		cfg.CountdownDuration = float64(appCfg.CountdownDuration)
	}
	return cfg
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Post("/{id}/events", s.handleSessionEvent)
			r.With(s.limitSubmissions).Post("/{id}/submit", s.handleSessionSubmit)
			r.Get("/{id}/ws", s.handleSessionSocket)
		})

		r.Get("/game-state", s.handleLoadGameState)
		r.Post("/game-state", s.handleSaveGameState)
		r.Delete("/game-state", s.handleClearGameState)

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", s.handleListLeaderboard)
			r.With(s.limitSubmissions).Post("/", s.handleSubmitScore)
			r.Get("/top", s.handleTopPlayers)
			r.Get("/user-score", s.handleUserScore)
			r.Get("/team-stats", s.handleTeamStats)
			r.Get("/events", s.handleLeaderboardEvents)
		})

		r.Get("/player-stats", s.handleGetPlayerStats)
		r.Post("/player-stats", s.handleRecordPlayerStats)
		r.Get("/player-stats/games", s.handlePlayerGames)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		})
	})
	return r
}

func (s *Server) limitSubmissions(next http.Handler) http.Handler {
	if s.SubmitLimiter == nil {
		return next
	}
	return s.SubmitLimiter.Middleware(next)
}
