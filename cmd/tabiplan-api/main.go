// README: Entry point; loads config, wires providers, stores and upstream clients, serves HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tabiplan/internal/config"
	httptransport "tabiplan/internal/http"
	"tabiplan/internal/infra"
	"tabiplan/internal/modules/interaction"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/service"
	"tabiplan/internal/wiring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, closeLLM, err := wiring.NewLLM(ctx, cfg)
	if err != nil {
		logger.Error("llm provider init", "provider", cfg.LLM.Provider, "err", err)
		os.Exit(1)
	}
	defer closeLLM()

	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Error("interaction log disabled", "err", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		llm = interaction.NewRecordingProvider(llm, interaction.NewStore(dbPool), logger)
	}

	var sessions session.Store = session.NewMemoryStore(cfg.Session.TTL)
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Error("redis init", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.Session.TTL)
	}

	upstream, err := wiring.NewUpstream(cfg, logger)
	if err != nil {
		logger.Error("upstream init", "err", err)
		os.Exit(1)
	}

	planner := service.NewPlanner(service.PlannerConfig{
		LLM:         llm,
		Sessions:    sessions,
		Locator:     upstream.Geocoder,
		Forecasts:   upstream.Weather,
		Access:      upstream.Access,
		WeatherDays: cfg.Weather.Days,
		Logger:      logger,
	})

	server := httptransport.NewServer(httptransport.ServerDeps{
		Addr:    cfg.HTTP.Addr,
		Planner: planner,
		Logger:  logger,
	})
	if err := server.Run(ctx); err != nil {
		logger.Error("http server", "err", err)
		os.Exit(1)
	}
}
