package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_URL", "MODEL_PATH", "MODEL_SOFTMAX", "PREDICTION_CACHE_SIZE", "DOWNLOAD_TIMEOUT", "SHUTDOWN_TIMEOUT", "INFERENCE_THREADS", "MODEL_INPUT_NAME", "MODEL_OUTPUT_NAME"} {
		t.Setenv(key, "")
	}

	t.Setenv("MODEL_URL", "https://models.example.com/emotions.onnx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://models.example.com/emotions.onnx", cfg.ModelURL)
	assert.Equal(t, "models/model.onnx", cfg.ModelPath)
	assert.True(t, cfg.ApplySoftmax)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, 5*time.Minute, cfg.DownloadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "input", cfg.InputName)
	assert.Equal(t, "output", cfg.OutputName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_URL", "https://models.example.com/emotions.onnx")
	t.Setenv("MODEL_PATH", "/tmp/m.onnx")
	t.Setenv("MODEL_SOFTMAX", "false")
	t.Setenv("PREDICTION_CACHE_SIZE", "0")
	t.Setenv("INFERENCE_THREADS", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "/tmp/m.onnx", cfg.ModelPath)
	assert.False(t, cfg.ApplySoftmax)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, 2, cfg.IntraOpThreads)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PREDICTION_CACHE_SIZE": "lots",
		"MODEL_SOFTMAX":         "maybe",
		"DOWNLOAD_TIMEOUT":      "soon",
		"INFERENCE_THREADS":     "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("MODEL_URL", "https://models.example.com/emotions.onnx")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresModelSource(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODEL_URL", "")
	t.Setenv("MODEL_PATH", filepath.Join(dir, "model.onnx"))

	_, err := Load()
	assert.ErrorIs(t, err, ErrNoModelSource)
}

func TestLoadAcceptsPresentModelWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o644))
	t.Setenv("MODEL_URL", "")
	t.Setenv("MODEL_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ModelURL)
	assert.Equal(t, path, cfg.ModelPath)
}
