package classifier

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScorer derives scores from the mean of each channel so different
// images rank differently while staying deterministic.
type fakeScorer struct {
	calls int32
	err   error
}

func (f *fakeScorer) Score(input []float32) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	plane := len(input) / 3
	var r, g, b float32
	for i := 0; i < plane; i++ {
		r += input[i]
		g += input[plane+i]
		b += input[2*plane+i]
	}
	n := float32(plane)
	return []float32{r / n, g / n, b / n, (r + g) / n, -(b / n)}, nil
}

func TestClassifyReturnsAllLabelsSorted(t *testing.T) {
	c, err := New(&fakeScorer{}, Options{Softmax: true})
	require.NoError(t, err)

	img := encodePNG(t, solidImage(32, 32, color.RGBA{R: 200, G: 40, B: 90, A: 255}))
	preds, err := c.Classify(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, preds, len(Labels))

	seen := map[string]bool{}
	var sum float32
	for i, p := range preds {
		seen[p.Label] = true
		sum += p.Score
		if i > 0 {
			assert.GreaterOrEqual(t, preds[i-1].Score, p.Score)
		}
	}
	assert.Len(t, seen, len(Labels))
	assert.InDelta(t, 1.0, sum, 1e-4)
}

func TestClassifyIsDeterministic(t *testing.T) {
	scorer := &fakeScorer{}
	c, err := New(scorer, Options{})
	require.NoError(t, err)

	img := encodePNG(t, solidImage(16, 16, color.RGBA{G: 255, A: 255}))
	first, err := c.Classify(context.Background(), img)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&scorer.calls))
}

func TestClassifyCachesByContent(t *testing.T) {
	scorer := &fakeScorer{}
	c, err := New(scorer, Options{CacheSize: 4, Metrics: metrics.NewCollector()})
	require.NoError(t, err)

	img := encodePNG(t, solidImage(16, 16, color.RGBA{B: 255, A: 255}))
	first, err := c.Classify(context.Background(), img)
	require.NoError(t, err)

	// mutating a returned slice must not leak into the cache
	first[0].Score = -1

	second, err := c.Classify(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&scorer.calls))
	assert.NotEqual(t, float32(-1), second[0].Score)
}

func TestClassifyConcurrentCallsAgree(t *testing.T) {
	c, err := New(&fakeScorer{}, Options{CacheSize: 8})
	require.NoError(t, err)
	img := encodePNG(t, solidImage(20, 20, color.RGBA{R: 90, G: 90, B: 10, A: 255}))

	want, err := c.Classify(context.Background(), img)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Classify(context.Background(), img)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestClassifyPropagatesErrors(t *testing.T) {
	collector := metrics.NewCollector()
	before := collector.ErrorCount()

	c, err := New(&fakeScorer{err: errors.New("boom")}, Options{Metrics: collector})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), encodePNG(t, solidImage(8, 8, color.White)))
	assert.ErrorContains(t, err, "boom")

	_, err = c.Classify(context.Background(), []byte("garbage"))
	assert.ErrorIs(t, err, ErrDecodeImage)

	assert.Equal(t, before+2, collector.ErrorCount())
}

func TestClassifyRejectsWrongScoreCount(t *testing.T) {
	c, err := New(&fakeScorer{}, Options{Labels: []string{"only", "two"}})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), encodePNG(t, solidImage(8, 8, color.Black)))
	assert.ErrorIs(t, err, ErrScoreCount)
}

func TestLabelsReturnsCopy(t *testing.T) {
	c, err := New(&fakeScorer{}, Options{})
	require.NoError(t, err)

	labels := c.Labels()
	labels[0] = "changed"
	assert.Equal(t, Labels, c.Labels())
}
