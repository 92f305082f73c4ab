package morningstar

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jantolip/consensus/internal/infra"
)

// holdingsFromPage scrapes the fund's snapshot page holdings table. Used
// only when the JSON holdings endpoint fails; the page carries the same
// top-holdings data in an HTML table with per-cell CSS classes.
func (c *Client) holdingsFromPage(ctx context.Context, secID string) ([]string, error) {
	body, _, err := infra.DoGet(ctx, c.fallbackPageURL+secID, c.headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot page: %w", err)
	}

	tickers := make([]string, 0, c.topN)
	doc.Find("table.holdingsTable tbody tr, #holdings_table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		ticker := strings.TrimSpace(row.Find("td.ticker").Text())
		country := strings.TrimSpace(row.Find("td.country").Text())
		if ticker == "" || !strings.EqualFold(country, c.country) {
			return true
		}
		tickers = append(tickers, ticker)
		return len(tickers) < c.topN
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("no holdings table on snapshot page for %s", secID)
	}
	return tickers, nil
}
