// Package report renders the consensus result: SVG bar chart, CSV
// export, markdown for the terminal, and the server-side HTML dashboard.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/jantolip/consensus/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Bar Chart — Pure Go, Zero Dependencies
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for the SVG chart.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 900)
	Height       int    // SVG height in pixels (default: 420)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 20)
	MarginBottom int    // bottom margin (default: 70, room for rotated labels)
	MarginLeft   int    // left margin (default: 50)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	BarColor     string // bar fill color (default: "#2563eb")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        900,
		Height:       420,
		MarginTop:    40,
		MarginRight:  20,
		MarginBottom: 70,
		MarginLeft:   50,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		BarColor:     "#2563eb",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// BarChart generates an SVG bar chart of ticker appearance counts.
// Entries are drawn in the order given (the tally is already sorted
// count-descending); ticker labels are rotated to fit.
func BarChart(entries []models.TallyEntry, cfg ChartConfig) string {
	if len(entries) == 0 {
		return emptySVG(cfg, "No data available")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "Appearances across top funds"
	}

	px, py, pw, ph := cfg.plotArea()

	maxCount := 0
	for _, e := range entries {
		if e.Appearances > maxCount {
			maxCount = e.Appearances
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="22" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Horizontal grid lines + y-axis labels at integer ticks.
	ticks := maxCount
	if ticks > 8 {
		ticks = 8
	}
	for i := 0; i <= ticks; i++ {
		val := float64(maxCount) * float64(i) / float64(ticks)
		y := float64(py+ph) - (val/float64(maxCount))*float64(ph)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%.0f</text>`,
			px-6, y+4, cfg.FontSize, cfg.TextColor, val))
	}

	// Bars with rotated ticker labels beneath.
	slot := float64(pw) / float64(len(entries))
	barW := slot * 0.7
	for i, e := range entries {
		barH := (float64(e.Appearances) / float64(maxCount)) * float64(ph)
		x := float64(px) + slot*float64(i) + (slot-barW)/2
		y := float64(py+ph) - barH

		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			x, y, barW, barH, cfg.BarColor))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%d</text>`,
			x+barW/2, y-4, cfg.FontSize, cfg.TextColor, e.Appearances))

		lx := x + barW/2
		ly := float64(py+ph) + 14
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="end" transform="rotate(-45 %.1f %.1f)">%s</text>`,
			lx, ly, cfg.FontSize, cfg.TextColor, lx, ly, escapeXML(e.Ticker)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// round2 rounds to two decimals, for the average-appearances metric.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
