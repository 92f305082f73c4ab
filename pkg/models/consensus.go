// Package models defines the shared data types exchanged between the
// pipeline, the data sources, the report generators, and the API layer.
package models

import "time"

// FundRecord is one screened fund: identity, 10-year performance, and
// its top U.S. equity holdings in portfolio order (at most 10 tickers).
// Records are immutable once built and live only for a single run.
type FundRecord struct {
	ID          string   `json:"id"`             // Morningstar SecId
	Name        string   `json:"name"`           // legal fund name
	Category    string   `json:"category,omitempty"`
	Return10Y   float64  `json:"return_10y"`     // annualised 10-year return, percent
	TopUSStocks []string `json:"top_us_stocks"`
}

// TallyEntry is one row of the consensus table: a ticker and the number
// of deduplicated funds holding it among their top positions.
type TallyEntry struct {
	Ticker      string `json:"ticker"`
	Appearances int    `json:"appearances"`
}

// Outcome status values for per-item pipeline results.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
)

// Stage values for per-item pipeline results.
const (
	StagePage  = "page"
	StageFund  = "fund"
	StageDedup = "dedup"
)

// ItemOutcome records what happened to a single page or fund during a
// run. A failed item is skipped with a reason; it never aborts the batch.
type ItemOutcome struct {
	Stage  string `json:"stage"`            // "page", "fund" or "dedup"
	ID     string `json:"id"`               // page number or SecId
	Name   string `json:"name,omitempty"`   // fund name, when known
	Status string `json:"status"`           // "ok" or "skipped"
	Reason string `json:"reason,omitempty"` // set when skipped
}

// RunReport summarises one pipeline run: how many items were processed,
// how many were dropped at each stage, and why.
type RunReport struct {
	RunID             string        `json:"run_id"`
	StartedAt         time.Time     `json:"started_at"`
	DurationMS        int64         `json:"duration_ms"`
	PagesFetched      int           `json:"pages_fetched"`
	PagesSkipped      int           `json:"pages_skipped"`
	FundsScreened     int           `json:"funds_screened"`
	FundsKept         int           `json:"funds_kept"`
	FundsSkipped      int           `json:"funds_skipped"`
	DuplicatesDropped int           `json:"duplicates_dropped"`
	Outcomes          []ItemOutcome `json:"outcomes"`
}

// ConsensusResult is the output of one full pipeline run.
type ConsensusResult struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Funds       []FundRecord `json:"funds"` // deduplicated survivors, screener order
	Tally       []TallyEntry `json:"tally"` // count descending, ticker ascending
	Report      RunReport    `json:"report"`
}

// Empty reports whether the run produced zero qualifying tickers.
// An empty result is a valid outcome, not an error; callers display
// a "no data" message instead of failing.
func (r *ConsensusResult) Empty() bool {
	return r == nil || len(r.Tally) == 0
}

// Metrics are the headline numbers shown above the consensus table.
type Metrics struct {
	TotalTickers   int     `json:"total_tickers"`
	MaxAppearances int     `json:"max_appearances"`
	AvgAppearances float64 `json:"avg_appearances"` // rounded to 2 decimals
}

// NewsArticle is a single market-news headline for the dashboard panel.
type NewsArticle struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}
