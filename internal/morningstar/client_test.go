package morningstar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jantolip/consensus/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func testConfig(screenerURL, holdingsURL, fallbackURL string) *config.Config {
	return &config.Config{
		Screener: config.ScreenerConfig{
			BaseURL:    screenerURL,
			UniverseID: "FOESP$$ALL",
			CurrencyID: "EUR",
			LanguageID: "es-ES",
			SortOrder:  "ReturnM120 desc",
			PageSize:   50,
		},
		Holdings: config.HoldingsConfig{
			BaseURL:         holdingsURL,
			FallbackPageURL: fallbackURL,
			Country:         "United States",
			TopN:            3,
		},
		Cache: config.CacheConfig{TTLSec: 60},
	}
}

const screenerPayload = `{
  "total": 3,
  "page": 1,
  "pageSize": 50,
  "rows": [
    {"SecId": "F001", "LegalName": "Alpha Equity Fund", "CategoryName": "RV Global", "ReturnM120": 12.5},
    {"SecId": "F002", "LegalName": "Beta Bond Fund", "CategoryName": "RF Deuda", "ReturnM120": 4.1},
    {"LegalName": "Row Without SecId", "CategoryName": "RV", "ReturnM120": 9.9}
  ]
}`

// ════════════════════════════════════════════════════════════════════
// Screener
// ════════════════════════════════════════════════════════════════════

func TestFetchTopFunds(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"page":               r.URL.Query().Get("page"),
			"pageSize":           r.URL.Query().Get("pageSize"),
			"sortOrder":          r.URL.Query().Get("sortOrder"),
			"universeIds":        r.URL.Query().Get("universeIds"),
			"securityDataPoints": r.URL.Query().Get("securityDataPoints"),
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, screenerPayload)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "http://unused", "http://unused?id="))
	rows, err := c.FetchTopFunds(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchTopFunds: %v", err)
	}

	want := map[string]string{
		"page":               "1",
		"pageSize":           "50",
		"sortOrder":          "ReturnM120 desc",
		"universeIds":        "FOESP$$ALL",
		"securityDataPoints": "SecId|LegalName|CategoryName|ReturnM120",
	}
	if !reflect.DeepEqual(gotQuery, want) {
		t.Errorf("query params = %v, want %v", gotQuery, want)
	}

	// The row without a SecId is dropped.
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].SecID != "F001" || rows[0].LegalName != "Alpha Equity Fund" ||
		rows[0].Category != "RV Global" || rows[0].Return10Y != 12.5 {
		t.Errorf("row[0] = %+v", rows[0])
	}
}

func TestFetchTopFundsCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, screenerPayload)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "http://unused", "http://unused?id="))
	ctx := context.Background()
	if _, err := c.FetchTopFunds(ctx, 1); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.FetchTopFunds(ctx, 1); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (second hit served from cache)", calls)
	}
}

func TestFetchTopFundsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "http://unused", "http://unused?id="))
	if _, err := c.FetchTopFunds(context.Background(), 1); err == nil {
		t.Error("expected error on upstream 500")
	}
}

// ════════════════════════════════════════════════════════════════════
// Holdings
// ════════════════════════════════════════════════════════════════════

const holdingsPayload = `{
  "equityHoldingPage": {
    "pageSize": 100,
    "holdingList": [
      {"ticker": "AAPL", "country": "United States", "weighting": 5.1},
      {"ticker": "ASML", "country": "Netherlands", "weighting": 4.0},
      {"ticker": "MSFT", "country": "united states", "weighting": 3.9},
      {"ticker": "", "country": "United States"},
      {"ticker": "NVDA", "country": "United States", "weighting": 3.1},
      {"ticker": "AMZN", "country": "United States", "weighting": 2.8}
    ]
  }
}`

func TestFetchTopHoldingsFiltersAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, holdingsPayload)
	}))
	defer srv.Close()

	c := NewClient(testConfig("http://unused", srv.URL, "http://unused?id="))
	tickers, err := c.FetchTopHoldings(context.Background(), "F001")
	if err != nil {
		t.Fatalf("FetchTopHoldings: %v", err)
	}

	// Non-U.S. and empty-ticker rows skipped, country match is
	// case-insensitive, and TopN (3) caps the list.
	want := []string{"AAPL", "MSFT", "NVDA"}
	if !reflect.DeepEqual(tickers, want) {
		t.Errorf("tickers = %v, want %v", tickers, want)
	}
}

const snapshotPage = `<html><body>
<table class="holdingsTable"><tbody>
  <tr><td class="ticker">AAPL</td><td class="country">United States</td></tr>
  <tr><td class="ticker">NESN</td><td class="country">Switzerland</td></tr>
  <tr><td class="ticker">MSFT</td><td class="country">United States</td></tr>
</tbody></table>
</body></html>`

func TestFetchTopHoldingsFallsBackToSnapshotPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sal/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, snapshotPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testConfig("http://unused", srv.URL+"/sal", srv.URL+"/snapshot?id="))
	tickers, err := c.FetchTopHoldings(context.Background(), "F001")
	if err != nil {
		t.Fatalf("FetchTopHoldings: %v", err)
	}

	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(tickers, want) {
		t.Errorf("tickers = %v, want %v", tickers, want)
	}
}

func TestFetchTopHoldingsBothPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig("http://unused", srv.URL, srv.URL+"/snapshot?id="))
	if _, err := c.FetchTopHoldings(context.Background(), "F001"); err == nil {
		t.Error("expected error when both the JSON API and the fallback fail")
	}
}

func TestFetchTopHoldingsMissingHoldingList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected": {}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// No holding list in the payload and no usable fallback page.
	c := NewClient(testConfig("http://unused", srv.URL, srv.URL+"/snapshot?id="))
	if _, err := c.FetchTopHoldings(context.Background(), "F001"); err == nil {
		t.Error("expected error for payload without a holding list")
	}
}
