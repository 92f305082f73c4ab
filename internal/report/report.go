package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jantolip/consensus/pkg/models"
)

// BuildMetrics computes the headline numbers shown above the table:
// qualifying ticker count, maximum appearances, and the mean rounded to
// two decimals.
func BuildMetrics(entries []models.TallyEntry) models.Metrics {
	m := models.Metrics{TotalTickers: len(entries)}
	if len(entries) == 0 {
		return m
	}
	sum := 0
	for _, e := range entries {
		sum += e.Appearances
		if e.Appearances > m.MaxAppearances {
			m.MaxAppearances = e.Appearances
		}
	}
	m.AvgAppearances = round2(float64(sum) / float64(len(entries)))
	return m
}

// Markdown renders the result as a markdown report: metrics, the
// consensus table, and the deduplicated fund list.
func Markdown(result *models.ConsensusResult) string {
	var sb strings.Builder
	sb.WriteString("# CONSENSUS — most held stocks among top funds\n\n")

	if result.Empty() {
		sb.WriteString("**No data available.** No ticker met the minimum appearance threshold.\n")
		return sb.String()
	}

	m := BuildMetrics(result.Tally)
	sb.WriteString(fmt.Sprintf("Generated %s · run `%s`\n\n",
		result.GeneratedAt.Format("2006-01-02 15:04 MST"), result.Report.RunID))
	sb.WriteString(fmt.Sprintf("- Tickers analysed: **%d**\n", m.TotalTickers))
	sb.WriteString(fmt.Sprintf("- Max appearances: **%d**\n", m.MaxAppearances))
	sb.WriteString(fmt.Sprintf("- Average appearances: **%.2f**\n\n", m.AvgAppearances))

	sb.WriteString("| Symbol | Appearances |\n|--------|-------------|\n")
	for _, e := range result.Tally {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", e.Ticker, e.Appearances))
	}

	sb.WriteString(fmt.Sprintf("\n## Funds (%d after dedup)\n\n", len(result.Funds)))
	for _, f := range result.Funds {
		sb.WriteString(fmt.Sprintf("- %s (10y %.2f%%)\n", f.Name, f.Return10Y))
	}

	r := result.Report
	sb.WriteString(fmt.Sprintf("\n_%d funds screened, %d skipped, %d near-duplicates dropped, %d/%d pages fetched._\n",
		r.FundsScreened, r.FundsSkipped, r.DuplicatesDropped, r.PagesFetched, r.PagesFetched+r.PagesSkipped))
	return sb.String()
}

// RenderTerminal renders the markdown report for the terminal. Falls
// back to the raw markdown when the terminal renderer fails.
func RenderTerminal(md string) string {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return md
	}
	return out
}
