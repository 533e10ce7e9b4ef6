package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"arena-server/config"
	"arena-server/room"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a config file (json, yaml or toml)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	mintToken := flag.String("mint-token", "", "Print an identity token for this player name and exit")
	tokenTier := flag.String("token-tier", "", "Default tier carried by -mint-token")
	tokenTTL := flag.Duration("token-ttl", 7*24*time.Hour, "Lifetime of a token printed by -mint-token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	log := newLogger(cfg.Log)

	if *mintToken != "" {
		auth := NewAuth(cfg.Auth.Secret, cfg.Auth.Required)
		if auth == nil {
			log.Fatal().Msg("auth.secret is not configured")
		}
		token, err := auth.Issue(*mintToken, sanitizeName(*mintToken), *tokenTier, *tokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("sign token")
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := room.NewMetrics()
	if err != nil {
		return err
	}

	var analytics *Analytics
	var recorder room.Recorder
	if cfg.Analytics.Path != "" {
		analytics, err = OpenAnalytics(cfg.Analytics.Path, cfg.Analytics.FlushInterval, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := analytics.Stop(); err != nil {
				log.Warn().Err(err).Msg("close analytics")
			}
		}()
		recorder = analytics
		log.Info().Str("path", cfg.Analytics.Path).Msg("analytics enabled")
	}

	auth := NewAuth(cfg.Auth.Secret, cfg.Auth.Required)
	if auth != nil {
		log.Info().Bool("required", cfg.Auth.Required).Msg("identity tokens enabled")
	}

	rooms := room.NewManager(room.Options{
		MaxRooms:      cfg.Room.MaxRooms,
		IdleTimeout:   cfg.Room.IdleTimeout,
		SweepInterval: cfg.Room.SweepInterval,
		Logger:        log,
		Metrics:       metrics,
		Recorder:      recorder,
	})
	hub := NewHub(HubOptions{
		Rooms:         rooms,
		Auth:          auth,
		Analytics:     analytics,
		Logger:        log,
		PublicURL:     cfg.Server.PublicURL,
		MaxConnsPerIP: cfg.Server.MaxConnsPerIP,
		MaxTotalConns: cfg.Server.MaxTotalConns,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           SetupRoutes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rooms.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); !errServerClosed(err) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
