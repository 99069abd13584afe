package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goroute/internal/api"
	"github.com/TimurManjosov/goroute/internal/cache"
	"github.com/TimurManjosov/goroute/internal/clicks"
	"github.com/TimurManjosov/goroute/internal/clock"
	"github.com/TimurManjosov/goroute/internal/config"
	"github.com/TimurManjosov/goroute/internal/engine"
	"github.com/TimurManjosov/goroute/internal/geo"
	"github.com/TimurManjosov/goroute/internal/kv"
	"github.com/TimurManjosov/goroute/internal/store"
	"github.com/TimurManjosov/goroute/internal/telemetry"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.AppEnv == "dev" {
		log = log.Level(zerolog.DebugLevel)
	}

	ctx := context.Background()

	repo, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.StoreType).Msg("failed to create ruleset store")
	}
	defer repo.Close()

	kvStore, err := kv.NewStore(ctx, cfg.KVType, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.KVType).Msg("failed to create kv store")
	}
	defer kvStore.Close()

	var resolver geo.Resolver = geo.Unavailable{}
	if cfg.GeoIPDBPath != "" {
		mmdb, err := geo.OpenMMDB(cfg.GeoIPDBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.GeoIPDBPath).Msg("failed to open geo database")
		}
		defer mmdb.Close()
		resolver = mmdb
	} else {
		log.Warn().Msg("no geo database configured, country rules will never match")
	}

	clk := clock.Real{}
	rulesetCache := cache.New(kvStore, repo, cfg.CacheTTL(), log)
	counter := clicks.New(kvStore, clk, cfg.ClickRetention())
	redirects := &engine.Router{
		Cache: rulesetCache,
		Eval: &engine.Evaluator{
			Geo:    resolver,
			Clock:  clk,
			Salt:   cfg.BucketSalt,
			Strict: cfg.StrictRules,
		},
		Clicks: counter,
		Log:    log,
	}

	telemetry.Init()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	srvAPI := api.NewServer(repo, rulesetCache, redirects, counter, log, cfg.AdminAPIKey, cfg.RateLimitPerIP)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}
