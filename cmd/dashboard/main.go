package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"CryptoDash/internal/collector"
	"CryptoDash/internal/config"
	"CryptoDash/internal/kv"
	"CryptoDash/internal/logging"
	"CryptoDash/internal/notifier"
	"CryptoDash/internal/scheduler"
	"CryptoDash/internal/server"
	"CryptoDash/internal/store"
	"CryptoDash/internal/toggle"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Msg("CryptoDash starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init store
	var st store.Store
	if cfg.Database.SQLitePath == ":memory:" {
		st = store.NewMemory()
		log.Warn().Msg("using in-memory store, prices are lost on exit")
	} else {
		sq, err := store.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("open sqlite store")
		}
		st = sq
	}
	defer st.Close()

	// Init toggle persistence
	backend, closeBackend := toggleBackend(ctx, cfg, st)
	defer closeBackend()
	toggles := toggle.New(backend)

	// Init fetcher and collector
	fetcher := collector.NewCoinGeckoFetcher(collector.CoinGeckoOptions{
		BaseURL:      cfg.CoinGecko.BaseURL,
		APIKey:       cfg.CoinGecko.APIKey,
		APIKeyHeader: cfg.CoinGecko.APIKeyHeader,
		VsCurrency:   cfg.CoinGecko.VsCurrency,
		RequestDelay: cfg.RequestDelay(),
		RetryCount:   *cfg.CoinGecko.RetryCount,
		RetryDelay:   cfg.RetryDelay(),
	})
	log.Info().Str("source", fetcher.Name()).Str("base_url", cfg.CoinGecko.BaseURL).Msg("price source ready")
	col := collector.NewCollector(fetcher, st, cfg.History.MaxDays)
	if cfg.CoinCap.BaseURL != "" {
		if cfg.CoinGecko.VsCurrency != "usd" {
			log.Warn().Str("vs_currency", cfg.CoinGecko.VsCurrency).Msg("coincap quotes usd only, history stays on coingecko")
		} else {
			col.History = collector.NewCoinCapFetcher(collector.CoinCapOptions{
				BaseURL:      cfg.CoinCap.BaseURL,
				APIKey:       cfg.CoinCap.APIKey,
				RequestDelay: cfg.CoinCapRequestDelay(),
				RetryCount:   *cfg.CoinCap.RetryCount,
				RetryDelay:   cfg.CoinCapRetryDelay(),
			})
			log.Info().Str("source", col.History.Name()).Str("base_url", cfg.CoinCap.BaseURL).Msg("history source ready")
		}
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIURL)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, tn, cfg.Location(), cfg.CoinGecko.VsCurrency)
	if err := sched.Register(cfg.Schedule.Hour, cfg.Schedule.Minute); err != nil {
		log.Fatal().Err(err).Msg("register daily update")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Deps{
		Store:          st,
		Collector:      col,
		Toggles:        toggles,
		Currency:       cfg.CoinGecko.VsCurrency,
		MaxDays:        cfg.History.MaxDays,
		CacheTTL:       cfg.Chart.CacheTTL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DayThreshold:   time.Duration(cfg.Chart.DayThresholdDays) * 24 * time.Hour,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, ":"+cfg.Server.Port)
	})
	if tn.Enabled() {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		log.Info().Msg("telegram polling started")
	}
	if cfg.Schedule.RunOnStart {
		log.Info().Msg("SCHEDULE_RUN_ON_START enabled, updating prices now")
		g.Go(func() error {
			if _, err := sched.RunNow(gctx); err != nil {
				log.Warn().Err(err).Msg("startup price update failed")
			}
			return nil
		})
	}

	log.Info().Msg("CryptoDash is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("CryptoDash stopped with error")
		return
	}
	log.Info().Msg("CryptoDash stopped")
}

// toggleBackend picks where chart toggles are kept. A Redis that cannot be
// reached falls back to the database so charts keep working.
func toggleBackend(ctx context.Context, cfg *config.Config, st store.Store) (kv.Store, func()) {
	noop := func() {}
	switch cfg.Toggles.Backend {
	case "memory":
		return kv.NewMemory(cfg.Toggles.TTL), noop
	case "file":
		return kv.NewFile(cfg.Toggles.File), noop
	case "redis":
		r, err := kv.NewRedis(ctx, cfg.Toggles.RedisURL, cfg.Toggles.TTL)
		if err == nil {
			return r, func() { r.Close() }
		}
		log.Warn().Err(err).Msg("redis unavailable, keeping toggles in the database")
	}
	if backend, ok := st.(kv.Store); ok {
		return backend, noop
	}
	return kv.NewMemory(cfg.Toggles.TTL), noop
}
