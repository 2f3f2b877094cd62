package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Labels are the emotions the model was trained on, in output index order.
var Labels = []string{"happy", "sad", "angry", "surprised", "disgusted"}

// ErrScoreCount is returned when the model emits a different number of
// scores than there are labels.
var ErrScoreCount = errors.New("score count does not match label count")

// Prediction is one label with its confidence score.
// It is encoded on the wire as a two element array: ["happy", 0.93].
type Prediction struct {
	Label string
	Score float32
}

func (p Prediction) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Label, p.Score})
}

func (p *Prediction) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("prediction: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.Label); err != nil {
		return fmt.Errorf("prediction label: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Score); err != nil {
		return fmt.Errorf("prediction score: %w", err)
	}
	return nil
}

// Rank pairs every label with its score and orders them by descending score.
// Equal scores keep label order.
func Rank(labels []string, scores []float32) ([]Prediction, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("%w: %d scores for %d labels", ErrScoreCount, len(scores), len(labels))
	}

	preds := make([]Prediction, len(labels))
	for i, label := range labels {
		preds[i] = Prediction{Label: label, Score: scores[i]}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})
	return preds, nil
}

// Softmax turns raw logits into probabilities that sum to one.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		exps[i] = math.Exp(float64(v - maxLogit))
		sum += exps[i]
	}
	for i := range exps {
		out[i] = float32(exps[i] / sum)
	}
	return out
}
