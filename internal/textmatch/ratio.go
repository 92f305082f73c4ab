// Package textmatch implements the normalized string-similarity scores
// used to detect near-duplicate fund names. Scores are integers in
// [0,100]; 100 is returned only for identical strings.
package textmatch

import (
	"math"

	"github.com/agnivade/levenshtein"
)

// Ratio returns the full-string similarity of a and b: the Levenshtein
// distance normalized by the longer length, scaled to [0,100].
// Non-identical strings never score 100, however long they are.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	score := int(math.Round(100 * (1 - float64(dist)/float64(longest))))
	if score >= 100 {
		score = 99
	}
	if score < 0 {
		score = 0
	}
	return score
}

// PartialRatio returns the best Ratio of the shorter string against
// every same-length window of the longer one. A name fully contained in
// a longer name ("Fund A" in "Fund A Plus") scores 100 here.
func PartialRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		if len(rb) == 0 {
			return 100
		}
		return 0
	}

	short := string(ra)
	best := 0
	for i := 0; i+len(ra) <= len(rb); i++ {
		window := string(rb[i : i+len(ra)])
		if short == window {
			return 100
		}
		if s := Ratio(short, window); s > best {
			best = s
		}
	}
	return best
}

// WeightedRatio combines the full and partial ratios: the partial score
// is discounted to 0.9 so that substring containment ranks high without
// ever reaching 100 for non-identical names. This is what the
// deduplicator compares against its threshold.
func WeightedRatio(a, b string) int {
	if a == b {
		return 100
	}
	full := Ratio(a, b)
	partial := int(math.Round(0.9 * float64(PartialRatio(a, b))))
	if partial > full {
		return partial
	}
	return full
}
