package scoring

import (
	"fmt"
	"math"
)

// Rules maps a stat name to its point multiplier. Keys are source-native
// stat identifiers: Sleeper stat names ("rush_yd") or ESPN stat IDs ("24").
type Rules map[string]float64

const maxMultiplier = 100

// Validate rejects rule tables that would poison every score computed from
// them. Called once per league per refresh cycle.
func (r Rules) Validate() error {
	for stat, mult := range r {
		if math.IsNaN(mult) || math.IsInf(mult, 0) {
			return fmt.Errorf("scoring rule %q: multiplier must be finite", stat)
		}
		if math.Abs(mult) > maxMultiplier {
			return fmt.Errorf("scoring rule %q: multiplier %.2f out of range", stat, mult)
		}
	}
	return nil
}

// DefaultRules is the PPR table used when a league reports no scoring
// settings of its own.
func DefaultRules() Rules {
	return Rules{
		"pass_yd":  0.04,
		"pass_td":  4,
		"pass_int": -1,
		"pass_2pt": 2,

		"rush_yd":  0.1,
		"rush_td":  6,
		"rush_2pt": 2,

		"rec":      1,
		"rec_yd":   0.1,
		"rec_td":   6,
		"rec_2pt":  2,
		"fum_lost": -2,

		"fgm_0_19":  3,
		"fgm_20_29": 3,
		"fgm_30_39": 3,
		"fgm_40_49": 4,
		"fgm_50p":   5,
		"fgmiss":    -1,
		"xpm":       1,
		"xpmiss":    -1,

		"sack":     1,
		"int":      2,
		"fum_rec":  2,
		"def_td":   6,
		"safe":     2,
		"blk_kick": 2,

		"pts_allow_0":     10,
		"pts_allow_1_6":   7,
		"pts_allow_7_13":  4,
		"pts_allow_14_20": 1,
		"pts_allow_21_27": 0,
		"pts_allow_28_34": -1,
		"pts_allow_35p":   -4,
	}
}
