// apiserver runs the MolScore HTTP API: scoring, training, corpus growth,
// health probes, and metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	minioStore "github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/MolScore/internal/interfaces/http"
	"github.com/turtacn/MolScore/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/molscore.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	logging.SetDefault(logger)
	logger.Info("starting molscore api server", logging.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Required infrastructure: postgres for the corpus, minio for models.
	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	conn, err := postgres.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()
	corpusRepo := repositories.NewCorpusRepository(conn.Pool(), logger)

	objClient, err := minioStore.NewClient(ctx, &cfg.MinIO, logger)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	modelStore := minioStore.NewModelStore(objClient, logger)

	metrics := prometheus.NewMetrics()
	checkers := []handlers.HealthChecker{
		handlers.CheckerFunc{CheckerName: "postgres", Fn: conn.HealthCheck},
		handlers.CheckerFunc{CheckerName: "minio", Fn: objClient.HealthCheck},
	}

	// Optional infrastructure: the server runs without cache or events.
	opts := []scoring.Option{
		scoring.WithMetrics(metrics),
		scoring.WithDefaultParams(likelihood.Params{
			Radius:            cfg.Scoring.Radius,
			PseudoCount:       cfg.Scoring.PseudoCount,
			EstimatedKeyspace: cfg.Scoring.EstimatedKeyspace,
			Alpha:             cfg.Scoring.Alpha,
		}),
	}

	redisClient, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without score cache", logging.Err(err))
	} else {
		defer redisClient.Close()
		cache := redis.NewScoreCache(redisClient, logger,
			redis.WithTTL(cfg.Scoring.CacheTTL))
		opts = append(opts, scoring.WithCache(cache))
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "redis", Fn: cache.Ping})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(&cfg.Kafka, logger)
		defer producer.Close()
		opts = append(opts, scoring.WithProducer(producer))
	}

	svc := scoring.NewService(corpusRepo, modelStore, logger, opts...)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ScoreHandler:  handlers.NewScoreHandler(svc),
		ModelHandler:  handlers.NewModelHandler(svc),
		HealthHandler: handlers.NewHealthHandler(version(), checkers...),
		Logger:        logger,
		Metrics:       metrics,
	})
	srv := httpserver.NewServer(cfg.Server.Port, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("api server stopped")
	return nil
}

// Build-time variables injected via ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func version() string {
	return fmt.Sprintf("%s (%s)", buildVersion, buildCommit)
}
