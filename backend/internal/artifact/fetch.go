// Package artifact makes sure the model weights exist on local disk.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Fetch downloads url into dest unless dest already exists.
// It reports whether a download happened. An existing file is never
// re-validated or refreshed.
func Fetch(ctx context.Context, client *http.Client, url, dest string) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("error checking model file: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create model directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build model request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("download model: unexpected status %d", resp.StatusCode)
	}

	// Written beside dest so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*.part")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return false, fmt.Errorf("install model: %w", err)
	}
	return true, nil
}
