// Package classifier turns an encoded face image into ranked emotion scores.
package classifier

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scorer produces raw per-class outputs for a preprocessed tensor.
type Scorer interface {
	Score(input []float32) ([]float32, error)
}

// Options tunes a Classifier. The zero value uses the default labels,
// no softmax, no cache and no metrics.
type Options struct {
	Labels    []string
	Softmax   bool
	CacheSize int
	Metrics   *metrics.Collector
}

// Classifier is the process wide inference object. It never changes after
// New returns and may be shared by any number of request handlers.
type Classifier struct {
	scorer  Scorer
	labels  []string
	softmax bool
	cache   *lru.Cache[[sha256.Size]byte, []Prediction]
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// New builds a Classifier around scorer.
func New(scorer Scorer, opts Options) (*Classifier, error) {
	labels := opts.Labels
	if len(labels) == 0 {
		labels = Labels
	}

	c := &Classifier{
		scorer:  scorer,
		labels:  append([]string(nil), labels...),
		softmax: opts.Softmax,
		metrics: opts.Metrics,
		tracer:  otel.Tracer("github.com/souvik03-136/emotionclassifier/classifier"),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[[sha256.Size]byte, []Prediction](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Labels returns the class labels in model output order.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Classify scores img against every label, highest score first.
func (c *Classifier) Classify(ctx context.Context, img []byte) ([]Prediction, error) {
	_, span := c.tracer.Start(ctx, "classifier.Classify",
		trace.WithAttributes(attribute.Int("image.bytes", len(img))))
	defer span.End()

	preds, cached, err := c.classify(img)
	span.SetAttributes(attribute.Bool("cache.hit", cached))
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordMLError()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordTopLabel(preds[0].Label)
	}
	span.SetAttributes(attribute.String("prediction.top", preds[0].Label))
	return preds, nil
}

func (c *Classifier) classify(img []byte) ([]Prediction, bool, error) {
	var key [sha256.Size]byte
	if c.cache != nil {
		key = sha256.Sum256(img)
		if preds, ok := c.cache.Get(key); ok {
			if c.metrics != nil {
				c.metrics.RecordCacheHit()
			}
			return append([]Prediction(nil), preds...), true, nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
	}

	input, err := Preprocess(img)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	scores, err := c.scorer.Score(input)
	if err != nil {
		return nil, false, fmt.Errorf("score image: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordMLInference(time.Since(start))
	}

	if c.softmax {
		scores = Softmax(scores)
	}
	preds, err := Rank(c.labels, scores)
	if err != nil {
		return nil, false, err
	}

	if c.cache != nil {
		c.cache.Add(key, append([]Prediction(nil), preds...))
	}
	return preds, false, nil
}
