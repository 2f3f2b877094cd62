package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrNoModelSource means there is neither a model on disk nor a URL to fetch it from.
var ErrNoModelSource = errors.New("MODEL_URL is required when the model file is absent")

// Config holds every tunable of the service.
type Config struct {
	Port string

	ModelURL        string
	ModelPath       string
	OnnxRuntimeLib  string
	InputName       string
	OutputName      string
	ApplySoftmax    bool
	IntraOpThreads  int
	CacheSize       int
	DownloadTimeout time.Duration

	StaticDir       string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	ServiceName  string
	OTLPEndpoint string
}

// LoadEnv loads environment variables from .env
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		ModelURL:       getEnv("MODEL_URL", ""),
		ModelPath:      getEnv("MODEL_PATH", "models/model.onnx"),
		OnnxRuntimeLib: getEnv("ONNXRUNTIME_LIB", ""),
		InputName:      getEnv("MODEL_INPUT_NAME", "input"),
		OutputName:     getEnv("MODEL_OUTPUT_NAME", "output"),
		StaticDir:      getEnv("STATIC_DIR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		ServiceName:    getEnv("SERVICE_NAME", "emotion-classifier"),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.ApplySoftmax, err = getBool("MODEL_SOFTMAX", true); err != nil {
		return nil, err
	}
	if cfg.IntraOpThreads, err = getInt("INFERENCE_THREADS", 0); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getInt("PREDICTION_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = getDuration("DOWNLOAD_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.IntraOpThreads < 0 {
		return nil, fmt.Errorf("INFERENCE_THREADS must not be negative, got %d", cfg.IntraOpThreads)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("PREDICTION_CACHE_SIZE must not be negative, got %d", cfg.CacheSize)
	}

	// The URL only matters on a cold start; a baked-in model needs none.
	if cfg.ModelURL == "" {
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNoModelSource, cfg.ModelPath)
			}
			return nil, fmt.Errorf("error checking model file: %w", err)
		}
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
