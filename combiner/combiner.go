// Package combiner merges independent per-modality results into one decision.
package combiner

import (
	"errors"

	"github.com/elum-utils/toxicity/models"
)

// ErrNoModality is returned when no modality result is supplied.
var ErrNoModality = errors.New("combiner: no modality results")

// Threshold is the blended cut-off. It is stricter than the per-modality one.
const Threshold = 0.5

// Combine merges a text and an image result. Either may be nil, not both.
//
// With a single modality the combination is that modality's own score and
// flag. With both, a modality contributes its score only when it is toxic
// on its own, and the combined score is the mean of the two contributions.
// The threshold is applied to the unrounded mean of the normalized raw
// scores; only the reported Score is rounded.
func Combine(text, image *models.ScoreResult) (models.CombinedResult, error) {
	out := models.CombinedResult{Text: text, Image: image}
	switch {
	case text == nil && image == nil:
		return models.CombinedResult{}, ErrNoModality
	case image == nil:
		out.Score = text.Score
		out.Toxic = text.Toxic
	case text == nil:
		out.Score = image.Score
		out.Toxic = image.Toxic
	default:
		mean := (contribution(text) + contribution(image)) / 2
		out.Toxic = mean > Threshold
		out.Score = models.Round3(mean)
	}
	return out, nil
}

func contribution(r *models.ScoreResult) float64 {
	if !r.Toxic {
		return 0
	}
	return r.Normalized()
}
