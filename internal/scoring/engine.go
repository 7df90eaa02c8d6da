// Package scoring applies league scoring rules to raw stat lines. It holds
// no state and performs no I/O; identical inputs always produce identical
// outputs.
package scoring

import (
	"math"
	"sort"
)

// Points applies a rule table to one raw stat line. Only stats present in
// both maps contribute; everything else is worth zero.
func Points(stats map[string]float64, rules Rules) float64 {
	if len(stats) == 0 || len(rules) == 0 {
		return 0
	}

	// Sum in sorted key order so repeated calls add in the same sequence.
	keys := make([]string, 0, len(stats))
	for stat := range stats {
		if _, ok := rules[stat]; ok {
			keys = append(keys, stat)
		}
	}
	sort.Strings(keys)

	var total float64
	for _, stat := range keys {
		total += stats[stat] * rules[stat]
	}
	return total
}

// Round trims a score to two decimals, the precision both platforms report.
func Round(x float64) float64 {
	return math.Round(x*100) / 100
}
