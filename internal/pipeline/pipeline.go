// Package pipeline implements the consensus core: screening pages of
// top-performing funds, looking up each fund's top U.S. holdings,
// deduplicating near-identical fund names, and tallying which tickers
// recur. Failures are contained at the item level — a bad page or fund
// is skipped with a recorded reason and never aborts the batch.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jantolip/consensus/internal/config"
	"github.com/jantolip/consensus/pkg/models"
)

// ScreenerRow is one row returned by the remote fund screener.
type ScreenerRow struct {
	SecID     string
	LegalName string
	Category  string
	Return10Y float64
}

// Source is the boundary to the remote fund-data vendor. The core never
// retries; rate limiting and caching live behind this interface.
type Source interface {
	// FetchTopFunds returns one page of screener rows, sorted by the
	// vendor on 10-year return descending.
	FetchTopFunds(ctx context.Context, page int) ([]ScreenerRow, error)

	// FetchTopHoldings returns the fund's top U.S. equity tickers in
	// portfolio order, at most the configured limit.
	FetchTopHoldings(ctx context.Context, secID string) ([]string, error)
}

// Options are the per-run pipeline settings.
type Options struct {
	Pages               int // screener pages 1..Pages
	CategoryContains    string
	MinAppearances      int
	SimilarityThreshold int
	ExcludedTickers     []string
}

// OptionsFromConfig derives run options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Pages:               cfg.Screener.Pages,
		CategoryContains:    cfg.Screener.CategoryContains,
		MinAppearances:      cfg.Pipeline.MinAppearances,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		ExcludedTickers:     cfg.Pipeline.ExcludedTickers,
	}
}

// Runner executes the pipeline against a Source.
type Runner struct {
	src  Source
	opts Options
}

// NewRunner creates a pipeline runner.
func NewRunner(src Source, opts Options) *Runner {
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	return &Runner{src: src, opts: opts}
}

// Run executes one full pipeline pass. It only returns an error when the
// context is cancelled; all remote failures degrade to skipped items in
// the run report. A result with an empty tally is a valid outcome.
func (r *Runner) Run(ctx context.Context) (*models.ConsensusResult, error) {
	report := models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	var records []models.FundRecord
	for page := 1; page <= r.opts.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := r.src.FetchTopFunds(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.PagesSkipped++
			report.Outcomes = append(report.Outcomes, models.ItemOutcome{
				Stage:  models.StagePage,
				ID:     strconv.Itoa(page),
				Status: models.OutcomeSkipped,
				Reason: fmt.Sprintf("screener fetch failed: %v", err),
			})
			continue
		}
		report.PagesFetched++

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			report.FundsScreened++

			outcome, rec := r.processFund(ctx, row)
			report.Outcomes = append(report.Outcomes, outcome)
			if outcome.Status == models.OutcomeSkipped {
				report.FundsSkipped++
				continue
			}
			records = append(records, rec)
		}
	}

	kept := Dedupe(records, r.opts.SimilarityThreshold)
	report.FundsKept = len(kept)
	report.DuplicatesDropped = len(records) - len(kept)
	for _, rec := range duplicatesOf(records, kept) {
		report.Outcomes = append(report.Outcomes, models.ItemOutcome{
			Stage:  models.StageDedup,
			ID:     rec.ID,
			Name:   rec.Name,
			Status: models.OutcomeSkipped,
			Reason: "name too similar to an already-kept fund",
		})
	}

	excluded := make(map[string]bool, len(r.opts.ExcludedTickers))
	for _, t := range r.opts.ExcludedTickers {
		excluded[t] = true
	}
	tally := Tally(kept, r.opts.MinAppearances, excluded)

	report.DurationMS = time.Since(report.StartedAt).Milliseconds()
	return &models.ConsensusResult{
		GeneratedAt: time.Now(),
		Funds:       kept,
		Tally:       tally,
		Report:      report,
	}, nil
}

// processFund turns one screener row into a fund record, or an outcome
// explaining why the row was skipped.
func (r *Runner) processFund(ctx context.Context, row ScreenerRow) (models.ItemOutcome, models.FundRecord) {
	outcome := models.ItemOutcome{
		Stage: models.StageFund,
		ID:    row.SecID,
		Name:  row.LegalName,
	}

	if r.opts.CategoryContains != "" && !strings.Contains(row.Category, r.opts.CategoryContains) {
		outcome.Status = models.OutcomeSkipped
		outcome.Reason = fmt.Sprintf("category %q outside filter %q", row.Category, r.opts.CategoryContains)
		return outcome, models.FundRecord{}
	}

	stocks, err := r.src.FetchTopHoldings(ctx, row.SecID)
	if err != nil {
		outcome.Status = models.OutcomeSkipped
		outcome.Reason = fmt.Sprintf("holdings fetch failed: %v", err)
		return outcome, models.FundRecord{}
	}
	if len(stocks) == 0 {
		outcome.Status = models.OutcomeSkipped
		outcome.Reason = "no U.S. equity holdings"
		return outcome, models.FundRecord{}
	}

	outcome.Status = models.OutcomeOK
	return outcome, models.FundRecord{
		ID:          row.SecID,
		Name:        row.LegalName,
		Category:    row.Category,
		Return10Y:   row.Return10Y,
		TopUSStocks: stocks,
	}
}

// duplicatesOf returns the records present in all but absent from kept,
// in input order.
func duplicatesOf(all, kept []models.FundRecord) []models.FundRecord {
	keptIDs := make(map[string]bool, len(kept))
	for _, k := range kept {
		keptIDs[k.ID] = true
	}
	var dropped []models.FundRecord
	for _, rec := range all {
		if !keptIDs[rec.ID] {
			dropped = append(dropped, rec)
		}
	}
	return dropped
}
