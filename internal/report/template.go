package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/jantolip/consensus/pkg/models"
)

// DashboardData is the template model for the HTML dashboard.
type DashboardData struct {
	Title       string
	GeneratedAt string
	HasResult   bool // a run has completed
	NoData      bool // the run produced zero qualifying tickers
	Entries     []models.TallyEntry
	Metrics     models.Metrics
	ChartSVG    template.HTML
	Funds       []models.FundRecord
	News        []models.NewsArticle
	Report      *models.RunReport
	Version     string
}

// RenderDashboard renders the dashboard page for the given result (nil
// when no run has happened yet) and optional news headlines.
func RenderDashboard(result *models.ConsensusResult, news []models.NewsArticle, version string) (string, error) {
	data := DashboardData{
		Title:   "CONSENSUS — Top Fund Holdings",
		News:    news,
		Version: version,
	}
	if result != nil {
		data.HasResult = true
		data.NoData = result.Empty()
		data.Entries = result.Tally
		data.Metrics = BuildMetrics(result.Tally)
		data.ChartSVG = template.HTML(BarChart(result.Tally, DefaultChartConfig()))
		data.Funds = result.Funds
		data.Report = &result.Report
		data.GeneratedAt = result.GeneratedAt.Format(time.RFC1123)
	}

	tmpl, err := template.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		return "", fmt.Errorf("parse dashboard template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render dashboard: %w", err)
	}
	return buf.String(), nil
}

// dashboardTemplate is the HTML template for the dashboard page.
// It is embedded as a Go constant — no external file dependencies.
const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 1100px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2 { font-weight: 600; }
  h1 { font-size: 1.5rem; color: var(--accent); }
  h2 { font-size: 1.15rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { display: flex; justify-content: space-between; align-items: flex-start;
            border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .metrics { display: grid; grid-template-columns: repeat(3, 1fr); gap: 10px;
             background: var(--section-bg); padding: 12px; border-radius: 8px; margin: 12px 0; }
  .metric { text-align: center; }
  .metric .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .metric .value { font-size: 1.4rem; font-weight: 700; }
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }
  .layout { display: grid; grid-template-columns: 1fr 2fr; gap: 20px; }
  .notice { background: #fefce8; border-left: 5px solid #eab308; padding: 12px; border-radius: 6px; margin: 12px 0; }
  .btn { display: inline-block; background: var(--accent); color: white; border: 0;
         padding: 8px 18px; border-radius: 6px; font-size: 0.95rem; cursor: pointer; text-decoration: none; }
  .news li { margin-bottom: 6px; }
  footer { margin-top: 32px; border-top: 1px solid var(--border); padding-top: 12px; }
</style>
</head>
<body>
  <div class="header">
    <div>
      <h1>📊 CONSENSUS</h1>
      <p class="muted">Top holdings of the best-performing equity funds, ranked by how many funds hold them.</p>
    </div>
    <form method="POST" action="/refresh">
      <button class="btn" type="submit">Load / refresh data</button>
    </form>
  </div>

  {{if not .HasResult}}
  <div class="notice">No data loaded yet. Press <strong>Load / refresh data</strong> to run the analysis.</div>
  {{else if .NoData}}
  <div class="notice">No data available — no ticker met the minimum appearance threshold. Try again later.</div>
  {{else}}
  <div class="metrics">
    <div class="metric"><div class="label">Tickers analysed</div><div class="value">{{.Metrics.TotalTickers}}</div></div>
    <div class="metric"><div class="label">Max appearances</div><div class="value">{{.Metrics.MaxAppearances}}</div></div>
    <div class="metric"><div class="label">Average appearances</div><div class="value">{{printf "%.2f" .Metrics.AvgAppearances}}</div></div>
  </div>

  <div class="layout">
    <div>
      <h2>📋 Results</h2>
      <table>
        <thead><tr><th>Symbol</th><th>Appearances</th></tr></thead>
        <tbody>
        {{range .Entries}}<tr><td>{{.Ticker}}</td><td>{{.Appearances}}</td></tr>
        {{end}}
        </tbody>
      </table>
      <a class="btn" href="/api/v1/consensus.csv">📥 Download CSV</a>
      <p class="muted">Generated {{.GeneratedAt}}{{if .Report}} · {{.Report.FundsScreened}} funds screened,
        {{.Report.FundsSkipped}} skipped, {{.Report.DuplicatesDropped}} near-duplicates dropped{{end}}</p>
    </div>
    <div>
      <h2>📊 Chart</h2>
      {{.ChartSVG}}
    </div>
  </div>

  <h2>Funds considered ({{len .Funds}})</h2>
  <table>
    <thead><tr><th>Fund</th><th>Category</th><th>10y return</th></tr></thead>
    <tbody>
    {{range .Funds}}<tr><td>{{.Name}}</td><td>{{.Category}}</td><td>{{printf "%.2f" .Return10Y}}%</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}

  {{if .News}}
  <h2>📰 Market news</h2>
  <ul class="news">
    {{range .News}}<li><a href="{{.Link}}">{{.Title}}</a> <span class="muted">— {{.Source}}</span></li>
    {{end}}
  </ul>
  {{end}}

  <footer>
    <h2>📊 Methodology</h2>
    <ul>
      <li>Funds are the equity funds with the best 10-year returns from the screener.</li>
      <li>Only each fund's top 10 positions are considered, U.S. stocks only.</li>
      <li>Funds with near-identical names are filtered to avoid double counting.</li>
    </ul>
    <h2>⚠️ Disclaimer</h2>
    <p class="muted">This application is for informational and educational purposes only. It is not
    financial advice, an investment recommendation, or an offer to buy or sell securities. Data is
    obtained from public sources and its accuracy is not guaranteed. Presence of a stock across many
    funds may indicate consensus but does not guarantee future performance.</p>
    <p class="muted">consensus {{.Version}}</p>
  </footer>
</body>
</html>
`
