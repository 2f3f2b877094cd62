package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/souvik03-136/emotionclassifier/backend/internal/classifier"
	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"github.com/souvik03-136/emotionclassifier/backend/internal/utils"
	"github.com/souvik03-136/emotionclassifier/backend/web"
	"go.uber.org/zap"
)

// ImageField is the form field carrying the base64 encoded image.
const ImageField = "imgBase64"

var (
	ErrMissingImage  = errors.New("missing image field")
	ErrInvalidBase64 = errors.New("invalid base64 image")
)

// ImageClassifier is the inference object shared by all requests.
type ImageClassifier interface {
	Classify(ctx context.Context, img []byte) ([]classifier.Prediction, error)
	Labels() []string
}

// Handler serves the HTTP routes of the classifier.
type Handler struct {
	Classifier   ImageClassifier
	Collector    *metrics.Collector
	Logger       *utils.Logger
	BuildVersion string
	ModelPath    string
}

// ClassifyResponse is the body of a successful POST /classify.
type ClassifyResponse struct {
	Predictions []classifier.Prediction `json:"predictions"`
}

// Index serves the landing page.
func (h *Handler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, web.IndexHTML)
}

// Classify decodes the submitted image and returns every label ranked by score.
// Decode and inference failures surface as a generic 500.
func (h *Handler) Classify(c echo.Context) error {
	payload, err := readImageField(c, ImageField)
	if err != nil {
		return err
	}

	img, err := decodeImagePayload(payload)
	if err != nil {
		return err
	}

	preds, err := h.Classifier.Classify(c.Request().Context(), img)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	return c.JSON(http.StatusOK, ClassifyResponse{Predictions: preds})
}

// Health reports liveness plus a host resource snapshot.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status": "ok",
		"labels": h.Classifier.Labels(),
	}

	// interval 0 compares against the previous call instead of blocking
	cpuPercents, cpuErr := cpu.Percent(0, false)
	memStat, memErr := mem.VirtualMemory()
	if cpuErr != nil || memErr != nil || len(cpuPercents) == 0 {
		h.Logger.Warn("host stats unavailable", zap.NamedError("cpu", cpuErr), zap.NamedError("memory", memErr))
		return c.JSON(http.StatusOK, body)
	}

	if h.Collector != nil {
		h.Collector.RecordSystemUsage(cpuPercents[0], memStat.UsedPercent)
	}
	body["cpu_usage"] = cpuPercents[0]
	body["memory_usage"] = memStat.UsedPercent
	return c.JSON(http.StatusOK, body)
}

// Version returns the build and model information.
func (h *Handler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":    h.BuildVersion,
		"model_file": filepath.Base(h.ModelPath),
		"labels":     h.Classifier.Labels(),
	})
}

// readImageField accepts the image either as a plain form value or as an
// uploaded file part whose content is the base64 text.
func readImageField(c echo.Context, field string) (string, error) {
	if v := c.FormValue(field); v != "" {
		return v, nil
	}

	fh, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingImage, field)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	return string(data), nil
}

// decodeImagePayload decodes base64 text, optionally wrapped in a
// data:<mime>;base64, URL as produced by FileReader.readAsDataURL.
func decodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: data URL without payload", ErrInvalidBase64)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidBase64)
	}

	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some clients strip the padding
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return img, nil
}
