package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/hntally/internal/adapters/http/api"
	"github.com/okian/hntally/internal/adapters/http/swagger"
	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/adapters/remote/fixture"
	"github.com/okian/hntally/internal/adapters/remote/hackernews"
	service "github.com/okian/hntally/internal/app"
	"github.com/okian/hntally/internal/config"
	"github.com/okian/hntally/internal/report"
	"github.com/okian/hntally/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// flags holds command-line overrides. A flag only wins over the loaded
// config when it was set explicitly.
type flags struct {
	configPath       string
	topN             int
	topK             int
	workers          int
	fetchConcurrency int
	fixturePath      string
	output           string
	logLevel         string
	addr             string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "hntally",
		Short: "Rank the most active commenters on the current Hacker News top stories",
		Long: `hntally walks the comment tree of every top story, counts comments
per author, and prints each story's top commenters with their totals
across all processed stories.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx, cmd, f)
			if err != nil {
				return err
			}
			return runOnce(ctx, cfg, cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (overrides "+config.EnvConfigPath+")")
	pf.IntVar(&f.topN, "top-n", 0, "number of top stories to process")
	pf.IntVar(&f.topK, "top-k", 0, "number of commenters to report per story")
	pf.IntVar(&f.workers, "workers", 0, "stories processed concurrently")
	pf.IntVar(&f.fetchConcurrency, "fetch-concurrency", 0, "in-flight item fetches per story")
	pf.StringVar(&f.fixturePath, "fixture", "", "read items from a YAML fixture instead of the API")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	root.Flags().StringVarP(&f.output, "output", "o", "", "report format: text or json")

	root.AddCommand(newServeCmd(f))
	return root
}

func newServeCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve aggregation runs over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx, cmd, f)
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	return cmd
}

// loadConfig layers flags over the loaded config and initializes logging.
func loadConfig(ctx context.Context, cmd *cobra.Command, f *flags) (*config.Config, error) {
	if f.configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, f.configPath); err != nil {
			return nil, fmt.Errorf("set config path: %w", err)
		}
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("top-n") {
		cfg.TopN = f.topN
	}
	if changed("top-k") {
		cfg.TopK = f.topK
	}
	if changed("workers") {
		cfg.WorkerCount = f.workers
	}
	if changed("fetch-concurrency") {
		cfg.FetchConcurrency = f.fetchConcurrency
	}
	if changed("fixture") {
		cfg.FixturePath = f.fixturePath
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.InitWithOptions(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// newStore picks the fixture store when a fixture path is configured and
// the Hacker News client otherwise.
func newStore(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	if cfg.FixturePath != "" {
		logger.Get().Info(ctx, "using fixture store", logger.String("path", cfg.FixturePath))
		return fixture.Load(ctx, cfg.FixturePath)
	}
	return hackernews.New(
		hackernews.WithBaseURL(cfg.BaseURL),
		hackernews.WithTimeout(cfg.RequestTimeout()),
		hackernews.WithRetryCount(cfg.RetryCount),
		hackernews.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	), nil
}

func newService(store remote.Store, cfg *config.Config) *service.Service {
	return service.New(store,
		service.WithLogger(logger.Named("aggregator")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithFetchConcurrency(cfg.FetchConcurrency),
	)
}

// runOnce performs a single run and writes the report to out.
func runOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	rep, err := report.New(cfg.Output, out)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	if d := cfg.RunTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, err := newService(store, cfg).Run(ctx, cfg.TopN, cfg.TopK)
	if err != nil {
		return err
	}
	return rep.Render(ctx, res)
}

// serve runs the HTTP API until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(newService(store, cfg),
		api.WithDefaults(cfg.TopN, cfg.TopK),
		api.WithRunTimeout(cfg.RunTimeout()),
		api.WithLogger(logger.Named("api")),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      max(writeTimeout, cfg.RunTimeout()+readTimeout),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}
