package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <item>
    <title>Markets rally on earnings</title>
    <link>https://example.com/rally</link>
    <pubDate>Mon, 18 Aug 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Fed holds rates steady</title>
    <link>https://example.com/fed</link>
    <pubDate>Tue, 19 Aug 2025 14:30:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	f := NewFetcherWithSources([]Source{{Name: "Test Feed", URL: srv.URL}})
	articles, err := f.Headlines(context.Background(), 10)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(articles))
	}
	// Newest first.
	if articles[0].Title != "Fed holds rates steady" {
		t.Errorf("articles[0] = %q, want the newer item first", articles[0].Title)
	}
	if articles[0].Source != "Test Feed" {
		t.Errorf("source = %q, want Test Feed", articles[0].Source)
	}
}

func TestHeadlinesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	f := NewFetcherWithSources([]Source{{Name: "Test", URL: srv.URL}})
	articles, err := f.Headlines(context.Background(), 1)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("articles = %d, want limit of 1 applied", len(articles))
	}
}

func TestHeadlinesFailedSourceSkipped(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	f := NewFetcherWithSources([]Source{
		{Name: "Good", URL: good.URL},
		{Name: "Bad", URL: bad.URL},
	})
	articles, err := f.Headlines(context.Background(), 10)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("articles = %d, want the good source's 2 items", len(articles))
	}
	for _, a := range articles {
		if a.Source == "Bad" {
			t.Errorf("article from the failed source leaked through: %+v", a)
		}
	}
}

func TestHeadlinesCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	f := NewFetcherWithSources([]Source{{Name: "Test", URL: srv.URL}})
	ctx := context.Background()
	if _, err := f.Headlines(ctx, 10); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := f.Headlines(ctx, 10); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if calls != 1 {
		t.Errorf("feed fetched %d times, want 1", calls)
	}
}
