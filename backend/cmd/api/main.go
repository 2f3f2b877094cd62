package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/souvik03-136/emotionclassifier/backend/internal/api"
	"github.com/souvik03-136/emotionclassifier/backend/internal/classifier"
	"github.com/souvik03-136/emotionclassifier/backend/internal/config"
	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"github.com/souvik03-136/emotionclassifier/backend/internal/telemetry"
	"github.com/souvik03-136/emotionclassifier/backend/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "emotion-api",
		Short: "Classify faces into five emotions",
		Long: "Without a subcommand the model is downloaded (if absent) and loaded, then the\n" +
			"process exits. Use it to bake the model into an image at build time.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), false)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), true)
		},
	})
	return root
}

func run(ctx context.Context, serve bool) error {
	envLoaded := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !envLoaded {
		logger.Debug("no .env file found, using system environment variables")
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()

	clf, engine, err := loadClassifier(ctx, cfg, logger, collector)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("engine close failed", zap.Error(err))
		}
		if err := classifier.ShutdownRuntime(); err != nil {
			logger.Warn("onnxruntime shutdown failed", zap.Error(err))
		}
	}()

	if !serve {
		logger.Info("model ready; run with `serve` to start the HTTP server")
		return nil
	}

	server := api.NewServer(&api.Handler{
		Classifier:   clf,
		Collector:    collector,
		Logger:       logger,
		BuildVersion: version,
		ModelPath:    cfg.ModelPath,
	}, api.ServerConfig{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Routes: api.RouteConfig{
			ServiceName: cfg.ServiceName,
			StaticDir:   cfg.StaticDir,
		},
	})

	logger.Info("classifier ready",
		zap.Strings("labels", clf.Labels()),
		zap.String("addr", cfg.Addr()),
		zap.String("version", version),
	)
	return server.Run(ctx)
}
