package main

import (
	"context"
	"net/http"
	"os"

	"github.com/souvik03-136/emotionclassifier/backend/internal/artifact"
	"github.com/souvik03-136/emotionclassifier/backend/internal/classifier"
	"github.com/souvik03-136/emotionclassifier/backend/internal/config"
	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"github.com/souvik03-136/emotionclassifier/backend/internal/utils"
	"go.uber.org/zap"
)

// loadClassifier makes sure the model is on disk and builds the shared
// inference object. Any error here aborts startup; nothing is retried.
func loadClassifier(ctx context.Context, cfg *config.Config, logger *utils.Logger, collector *metrics.Collector) (*classifier.Classifier, *classifier.Engine, error) {
	dlCtx, cancel := context.WithTimeout(ctx, cfg.DownloadTimeout)
	defer cancel()

	fetched, err := artifact.Fetch(dlCtx, &http.Client{}, cfg.ModelURL, cfg.ModelPath)
	if err != nil {
		return nil, nil, err
	}
	if fetched {
		collector.RecordModelDownload()
		logger.Info("model downloaded", zap.String("url", cfg.ModelURL), zap.String("path", cfg.ModelPath))
	} else {
		logger.Info("model already present, skipping download", zap.String("path", cfg.ModelPath))
	}

	engine, err := classifier.NewEngine(cfg.ModelPath, classifier.EngineOptions{
		LibraryPath:    cfg.OnnxRuntimeLib,
		InputName:      cfg.InputName,
		OutputName:     cfg.OutputName,
		IntraOpThreads: cfg.IntraOpThreads,
		NumClasses:     len(classifier.Labels),
	})
	if err != nil {
		if fetched {
			// a freshly fetched file that cannot load would otherwise be
			// trusted on every later start
			if rmErr := os.Remove(cfg.ModelPath); rmErr != nil {
				logger.Warn("could not remove unusable model", zap.String("path", cfg.ModelPath), zap.Error(rmErr))
			}
		}
		return nil, nil, err
	}

	clf, err := classifier.New(engine, classifier.Options{
		Labels:    classifier.Labels,
		Softmax:   cfg.ApplySoftmax,
		CacheSize: cfg.CacheSize,
		Metrics:   collector,
	})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return clf, engine, nil
}
