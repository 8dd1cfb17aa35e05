package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/infrastructure/storage/fs"
	httpserver "github.com/turtacn/MolScore/internal/interfaces/http"
	"github.com/turtacn/MolScore/internal/interfaces/http/handlers"
)

type serveOptions struct {
	port     int
	modelDir string
}

// newServeCommand runs the scoring API without any external infrastructure:
// models live on the local filesystem, the corpus in process memory.  The
// full deployment with postgres, redis, minio, and kafka is cmd/apiserver.
func newServeCommand(_ *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API locally",
		Long:  "Starts the HTTP scoring API backed by the local filesystem for model\ndocuments and an in-memory training corpus.  Suitable for development\nand single-machine use; production deployments run the apiserver binary.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	defaults := config.NewDefaultConfig()
	f := cmd.Flags()
	f.IntVarP(&opts.port, "port", "p", defaults.Server.Port, "HTTP listen port")
	f.StringVar(&opts.modelDir, "model-dir", defaults.Scoring.ModelDir, "directory for model documents")
	return cmd
}

func runServe(parent context.Context, opts *serveOptions) error {
	logger := logging.Default()

	store, err := fs.NewModelStore(opts.modelDir, logger)
	if err != nil {
		return err
	}

	metrics := prometheus.NewMetrics()
	svc := scoring.NewService(
		repositories.NewMemoryCorpusRepository(),
		store,
		logger,
		scoring.WithMetrics(metrics),
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ScoreHandler:  handlers.NewScoreHandler(svc),
		ModelHandler:  handlers.NewModelHandler(svc),
		HealthHandler: handlers.NewHealthHandler(Version),
		Logger:        logger,
		Metrics:       metrics,
	})
	srv := httpserver.NewServer(opts.port, router, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}
