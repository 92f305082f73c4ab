// Package morningstar implements the pipeline.Source boundary against
// the public Morningstar screener and the sal-service portfolio holdings
// endpoint, with an HTML snapshot-page fallback for holdings.
//
// The screener is paginated and sorted server-side (ReturnM120 desc);
// holdings are fetched per fund by SecId. Both calls are cached and rate
// limited here — the pipeline core never retries.
package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/jantolip/consensus/internal/config"
	"github.com/jantolip/consensus/internal/infra"
	"github.com/jantolip/consensus/internal/pipeline"
)

// securityDataPoints are the screener columns the pipeline consumes.
const securityDataPoints = "SecId|LegalName|CategoryName|ReturnM120"

// holdingListPath extracts the equity holding list from the nested
// sal-service payload.
const holdingListPath = "$.equityHoldingPage.holdingList"

// Client fetches fund data from Morningstar.
type Client struct {
	screenerURL     string
	holdingsURL     string
	fallbackPageURL string
	universeID      string
	currencyID      string
	languageID      string
	sortOrder       string
	pageSize        int
	country         string
	topN            int
	headers         map[string]string
	cache           *infra.Cache
	limiter         *infra.RateLimiter
}

// NewClient creates a Morningstar client from the application config.
func NewClient(cfg *config.Config) *Client {
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		screenerURL:     cfg.Screener.BaseURL,
		holdingsURL:     cfg.Holdings.BaseURL,
		fallbackPageURL: cfg.Holdings.FallbackPageURL,
		universeID:      cfg.Screener.UniverseID,
		currencyID:      cfg.Screener.CurrencyID,
		languageID:      cfg.Screener.LanguageID,
		sortOrder:       cfg.Screener.SortOrder,
		pageSize:        cfg.Screener.PageSize,
		country:         cfg.Holdings.Country,
		topN:            cfg.Holdings.TopN,
		headers:         cfg.FetchHeaders(),
		cache:           infra.NewCache(ttl),
		limiter:         infra.NewRateLimiter(2, time.Second),
	}
}

// FetchTopFunds returns one page of screener rows.
func (c *Client) FetchTopFunds(ctx context.Context, page int) ([]pipeline.ScreenerRow, error) {
	cacheKey := "screener:" + strconv.Itoa(page)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]pipeline.ScreenerRow), nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("sortOrder", c.sortOrder)
	q.Set("outputType", "json")
	q.Set("version", "1")
	q.Set("languageId", c.languageID)
	q.Set("currencyId", c.currencyID)
	q.Set("universeIds", c.universeID)
	q.Set("securityDataPoints", securityDataPoints)

	var resp screenerResponse
	if err := c.getJSON(ctx, c.screenerURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("screener page %d: %w", page, err)
	}

	rows := make([]pipeline.ScreenerRow, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		if r.SecID == "" {
			continue
		}
		rows = append(rows, pipeline.ScreenerRow{
			SecID:     r.SecID,
			LegalName: r.LegalName,
			Category:  r.CategoryName,
			Return10Y: r.ReturnM120,
		})
	}

	c.cache.Set(cacheKey, rows)
	return rows, nil
}

// FetchTopHoldings returns the fund's top U.S. equity tickers in
// portfolio order. The JSON holdings endpoint is tried first; on failure
// the fund's snapshot HTML page is scraped as a fallback.
func (c *Client) FetchTopHoldings(ctx context.Context, secID string) ([]string, error) {
	cacheKey := "holdings:" + secID
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]string), nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tickers, jsonErr := c.holdingsFromJSON(ctx, secID)
	if jsonErr != nil {
		var scrapeErr error
		tickers, scrapeErr = c.holdingsFromPage(ctx, secID)
		if scrapeErr != nil {
			return nil, fmt.Errorf("holdings %s: %w (fallback: %v)", secID, jsonErr, scrapeErr)
		}
	}

	c.cache.Set(cacheKey, tickers)
	return tickers, nil
}

// holdingsFromJSON pulls the equity holding list out of the sal-service
// payload. The payload nests the list several levels deep and its exact
// shape shifts between fund types, so the list is located by jsonpath
// over the decoded document rather than by a rigid struct.
func (c *Client) holdingsFromJSON(ctx context.Context, secID string) ([]string, error) {
	u := fmt.Sprintf("%s/%s/data?premiumNum=100&freeNum=100&languageId=%s",
		strings.TrimRight(c.holdingsURL, "/"), url.PathEscape(secID), url.QueryEscape(c.languageID))

	var doc any
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}

	jval, err := jsonpath.Get(holdingListPath, doc)
	if err != nil {
		return nil, fmt.Errorf("holding list not found: %w", err)
	}
	list, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("holding list has unexpected shape %T", jval)
	}

	tickers := make([]string, 0, c.topN)
	for _, item := range list {
		h, ok := item.(map[string]any)
		if !ok {
			continue
		}
		country, _ := h["country"].(string)
		ticker, _ := h["ticker"].(string)
		if ticker == "" || !strings.EqualFold(country, c.country) {
			continue
		}
		tickers = append(tickers, ticker)
		if len(tickers) == c.topN {
			break
		}
	}
	return tickers, nil
}

// getJSON performs a GET through the shared HTTP helper and decodes the
// response body as JSON.
func (c *Client) getJSON(ctx context.Context, u string, dest any) error {
	body, _, err := infra.DoGet(ctx, u, c.headers)
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}
