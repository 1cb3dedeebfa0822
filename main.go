package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/config"
	"cine-prompt-server/modules/common/cors"
	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/logger"
	"cine-prompt-server/modules/common/redis"
	"cine-prompt-server/modules/common/response"
	"cine-prompt-server/modules/gateway"
	"cine-prompt-server/modules/session"
	"cine-prompt-server/modules/storyboard"
	"cine-prompt-server/modules/transition"
)

const cleanupInterval = 5 * time.Minute

func healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "cine-prompt-server",
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("[Server] failed to load config")
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("[Server] failed to create model client")
	}

	var guard session.Guard = session.NewMemoryGuard()
	if rdb := redis.Connect(cfg); rdb != nil {
		defer rdb.Close()
		guard = session.NewRedisGuard(rdb, cfg.GenerationTimeout+time.Minute)
	}

	policy := cors.New(cfg.AllowedOrigins)

	sessions := session.NewManager(cfg.SessionIdleTTL, cfg.SessionMaxAge, cfg.ResultHistoryLimit)
	hub := session.NewHub(sessions, policy.CheckOrigin)
	sessions.OnEvict(hub.CloseSession)
	sessions.StartCleanupRoutine(ctx, cleanupInterval)

	controller := session.NewController(
		sessions,
		storyboard.NewService(client, cfg.GeminiModel, cfg.GenerationTimeout),
		transition.NewService(client, cfg.GeminiModel, cfg.GenerationTimeout),
		guard,
		hub,
	)
	sessionHandler := session.NewHandler(controller, sessions, cfg.MaxUploadBytes, cfg.IsDevelopment())
	gatewayHandler := gateway.NewHandler(cfg, gateway.NewService(client, cfg.GatewayTimeout, cfg.GenerationTimeout), policy)

	r := mux.NewRouter()
	r.Use(logger.Middleware)

	r.HandleFunc("/", healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", sessionHandler.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/admin/cleanup", sessionHandler.HandleCleanup).Methods(http.MethodPost)
	r.HandleFunc("/ws", hub.HandleWebSocket)

	// the gateway answers OPTIONS and wrong methods itself
	r.HandleFunc("/generate", gatewayHandler.HandleGenerate)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(policy.Middleware("GET, POST, PATCH, DELETE, OPTIONS", "Content-Type, X-Request-ID"))
	api.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	sessionHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("[Server] cine prompt server starting")
		log.Info().Msgf("[Server] gateway endpoint: http://localhost:%s/generate", cfg.Port)
		log.Info().Msgf("[Server] websocket endpoint: ws://localhost:%s/ws?session=<id>", cfg.Port)
		log.Info().Msgf("[Server] metrics: http://localhost:%s/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[Server] failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[Server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[Server] graceful shutdown failed")
	}
}
