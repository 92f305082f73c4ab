package pipeline

import (
	"sort"

	"github.com/jantolip/consensus/pkg/models"
)

// Tally flattens the TopUSStocks lists of all records, counts
// appearances per ticker, removes excluded tickers, and keeps only
// tickers appearing at least minAppearances times. The result is sorted
// by count descending; equal counts are ordered by ticker ascending (the
// original left this to its counting library — here it is explicit).
//
// An empty result is valid: callers display "no data" rather than treat
// it as a failure.
func Tally(records []models.FundRecord, minAppearances int, excluded map[string]bool) []models.TallyEntry {
	if minAppearances < 1 {
		minAppearances = 1
	}

	counts := make(map[string]int)
	for _, rec := range records {
		for _, ticker := range rec.TopUSStocks {
			if ticker == "" {
				continue
			}
			counts[ticker]++
		}
	}

	entries := make([]models.TallyEntry, 0, len(counts))
	for ticker, n := range counts {
		if excluded[ticker] || n < minAppearances {
			continue
		}
		entries = append(entries, models.TallyEntry{Ticker: ticker, Appearances: n})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Appearances != entries[j].Appearances {
			return entries[i].Appearances > entries[j].Appearances
		}
		return entries[i].Ticker < entries[j].Ticker
	})
	return entries
}
