package ranking

import (
	"math"
	"sort"

	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/scoring"
)

// Top score more than 3x the median means one outlier dominates; bars are
// drawn on a log scale instead.
const compressionRatio = 3.0

// applyTiers classifies each entry into a quartile band and computes its
// display percent of the top score.
func applyTiers(entries []models.RankingEntry) {
	if len(entries) == 0 {
		return
	}

	scores := make([]float64, len(entries))
	top := entries[0].Score
	for i, e := range entries {
		scores[i] = e.Score
		if e.Score > top {
			top = e.Score
		}
	}

	q1, q2, q3 := Quartiles(scores)
	compress := q2 > 0 && top > compressionRatio*q2

	for i := range entries {
		entries[i].Tier = tierFor(entries[i].Score, q1, q2, q3)
		entries[i].ScorePercent = displayPercent(entries[i].Score, top, compress)
	}
}

// Quartiles returns the Q1/Q2/Q3 boundaries of a non-empty distribution,
// interpolating linearly between order statistics.
func Quartiles(scores []float64) (q1, q2, q3 float64) {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	return quantile(sorted, 0.25), quantile(sorted, 0.5), quantile(sorted, 0.75)
}

func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// tierFor places one score. A score sitting exactly on a boundary belongs
// to the upper tier.
func tierFor(score, q1, q2, q3 float64) models.Tier {
	switch {
	case score >= q3:
		return models.TierElite
	case score >= q2:
		return models.TierGood
	case score >= q1:
		return models.TierAverage
	default:
		return models.TierStruggling
	}
}

func displayPercent(score, top float64, compress bool) float64 {
	if top <= 0 || score <= 0 {
		return 0
	}
	if score > top {
		score = top
	}
	if compress {
		return scoring.Round(100 * math.Log1p(score) / math.Log1p(top))
	}
	return scoring.Round(100 * score / top)
}
