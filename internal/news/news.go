// Package news fetches market-news headlines for the dashboard side
// panel from a set of RSS feeds. Sources are fetched in parallel and a
// failed source is simply skipped — headlines are decoration, never a
// reason to fail a request.
package news

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/jantolip/consensus/internal/infra"
	"github.com/jantolip/consensus/pkg/models"
)

// Source is one RSS feed.
type Source struct {
	Name string
	URL  string
}

// DefaultSources lists the market-news feeds shown on the dashboard.
var DefaultSources = []Source{
	{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
	{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	{Name: "Expansión Mercados", URL: "https://e00-expansion.uecdn.es/rss/mercados.xml"},
}

// Fetcher retrieves and caches headlines from the configured sources.
type Fetcher struct {
	sources []Source
	cache   *infra.Cache
	parser  *gofeed.Parser
}

// NewFetcher creates a news fetcher with the default sources.
func NewFetcher() *Fetcher {
	return NewFetcherWithSources(DefaultSources)
}

// NewFetcherWithSources creates a news fetcher with custom sources.
func NewFetcherWithSources(sources []Source) *Fetcher {
	return &Fetcher{
		sources: sources,
		cache:   infra.NewCache(10 * time.Minute),
		parser:  gofeed.NewParser(),
	}
}

// Headlines returns up to limit recent articles across all sources,
// newest first. Sources that fail to fetch or parse are skipped.
func (f *Fetcher) Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := "news:headlines"
	if cached, ok := f.cache.Get(cacheKey); ok {
		return clip(cached.([]models.NewsArticle), limit), nil
	}

	var mu sync.Mutex
	var all []models.NewsArticle

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range f.sources {
		g.Go(func() error {
			articles, err := f.fetchFeed(gctx, src)
			if err != nil {
				return nil // non-fatal: skip this source
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})

	f.cache.Set(cacheKey, all)
	return clip(all, limit), nil
}

// fetchFeed downloads and parses one RSS source.
func (f *Fetcher) fetchFeed(ctx context.Context, src Source) ([]models.NewsArticle, error) {
	body, _, err := infra.DoGet(ctx, src.URL, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := f.parser.Parse(body)
	if err != nil {
		return nil, err
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := time.Time{}
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		articles = append(articles, models.NewsArticle{
			Title:     item.Title,
			Link:      item.Link,
			Source:    src.Name,
			Published: published,
		})
	}
	return articles, nil
}

func clip(articles []models.NewsArticle, limit int) []models.NewsArticle {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}
