package pipeline

import (
	"github.com/jantolip/consensus/internal/textmatch"
	"github.com/jantolip/consensus/pkg/models"
)

// Dedupe removes records whose name scores at or above threshold against
// any already-kept record's name. First occurrence wins, and the input
// order is preserved among survivors — the upstream sort (return
// descending) therefore carries through. The scan is O(n²) name
// comparisons, which is fine for the tens of funds a run handles; do not
// feed it thousands of records without revisiting that.
//
// threshold is a similarity score in [0,100]: at 100 only exact
// duplicate names are removed, at 0 at most one record survives.
func Dedupe(records []models.FundRecord, threshold int) []models.FundRecord {
	kept := make([]models.FundRecord, 0, len(records))
	for _, cand := range records {
		duplicate := false
		for _, k := range kept {
			if textmatch.WeightedRatio(cand.Name, k.Name) >= threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, cand)
		}
	}
	return kept
}
