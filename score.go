package vecstore

import "github.com/hupe1980/vecstore/distance"

// MinScore is the lowest score ScoreFromDistance returns.
const MinScore float32 = 0.01

// ScoreFromDistance maps a squared L2 distance to a ranking score in [0.01, 1].
//
// It is a bounded heuristic, not a calibrated similarity: 1 - min(d/100, 0.99).
// Negative distances clamp to 1.
func ScoreFromDistance(d float32) float32 {
	if d <= 0 {
		return 1
	}
	// 1 - 0.99 rounds below 0.01 in float32.
	return max(1-min(d/100, 0.99), MinScore)
}

// CosineRelevance returns the cosine similarity of a and b rescaled to [0, 1].
// Zero vectors score 0.5.
func CosineRelevance(a, b []float32) float32 {
	na, nb := distance.Norm(a), distance.Norm(b)
	if na == 0 || nb == 0 {
		return 0.5
	}

	cos := distance.Dot(a, b) / (na * nb)
	cos = max(-1, min(1, cos))
	return (cos + 1) / 2
}
