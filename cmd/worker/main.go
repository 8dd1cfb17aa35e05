// worker consumes model lifecycle events: when a model is retrained anywhere
// in the deployment it drops the stale cached scores for the replaced
// version.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/molscore.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	logging.SetDefault(logger)

	redisClient, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewScoreCache(redisClient, logger)

	consumer := kafka.NewConsumer(&cfg.Kafka, kafka.TopicModelTrained, logger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker consuming model trained events",
		logging.String("topic", kafka.TopicModelTrained),
		logging.String("group", cfg.Kafka.GroupID))

	return consumer.Run(ctx, func(ctx context.Context, msg kafkago.Message) error {
		ev, err := kafka.DecodeModelTrained(msg.Value)
		if err != nil {
			return err
		}
		if ev.PreviousDigest == "" {
			return nil
		}

		removed, err := cache.InvalidateModel(ctx, ev.PreviousDigest)
		if err != nil {
			return err
		}
		logger.Info("invalidated cached scores for replaced model",
			logging.String("model_kind", ev.ModelKind),
			logging.String("previous_digest", ev.PreviousDigest),
			logging.String("new_digest", ev.ModelDigest),
			logging.Int64("removed", removed))
		return nil
	})
}
