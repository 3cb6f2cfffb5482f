package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/craftpanel/pluginhub/pkg/api"
	"github.com/craftpanel/pluginhub/pkg/config"
	"github.com/craftpanel/pluginhub/pkg/daemon"
	"github.com/craftpanel/pluginhub/pkg/linkstore"
	"github.com/craftpanel/pluginhub/pkg/observability"
	"github.com/craftpanel/pluginhub/pkg/providers"
)

func main() {
	overridesPath := flag.String("provider-overrides", "", "Path to a YAML file overriding upstream base URLs per provider")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *overridesPath != "" {
		cfg.Providers.OverridesFile = *overridesPath
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with an error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	links := linkstore.New(db, dialect)
	if err := links.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize link store schema: %w", err)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	upstreamLogger := logrus.New()
	upstreamLogger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		upstreamLogger.SetLevel(level)
	}

	overrides, err := config.LoadProviderOverrides(cfg.Providers.OverridesFile)
	if err != nil {
		return err
	}
	baseURLs := make(map[providers.Provider]string, len(overrides))
	for name, o := range overrides {
		provider, err := providers.ParseProvider(name)
		if err != nil {
			return fmt.Errorf("provider overrides: %w", err)
		}
		baseURLs[provider] = o.BaseURL
	}

	registry := providers.NewRegistry(providers.RegistryConfig{
		CurseForgeAPIKey: cfg.Providers.CurseForgeAPIKey,
		PolymartTokens:   links,
		BaseURLs:         baseURLs,
	}, providers.Options{
		UserAgent: cfg.App.UserAgent(),
		Timeout:   cfg.Providers.UpstreamTimeout,
		Logger:    upstreamLogger,
		Metrics:   metrics,
	})

	daemonClient := daemon.NewClient(cfg.Daemon.URL, cfg.Daemon.Token, cfg.Daemon.PullTimeout, upstreamLogger)

	sweeper := linkstore.NewSweeper(links, logger, cfg.Providers.PendingLinkMaxAge)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start link sweeper: %w", err)
	}
	defer sweeper.Stop()

	server := api.NewServer(api.ServerOptions{
		Registry:        registry,
		Links:           links,
		Daemon:          daemonClient,
		Logger:          logger,
		Metrics:         metrics,
		PanelBaseURL:    cfg.App.BaseURL,
		PublicBaseURL:   cfg.App.BaseURL,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SearchCacheSize: cfg.Providers.SearchCacheSize,
		SearchCacheTTL:  cfg.Providers.SearchCacheTTL,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting plugin marketplace API server")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health and metrics server")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown did not complete cleanly")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, linkstore.Dialect, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		return db, linkstore.DialectSQLite, err
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		return db, linkstore.DialectPostgres, err
	}
	return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
