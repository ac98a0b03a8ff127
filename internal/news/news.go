// Package news fetches Indian market headlines from public RSS feeds, so a
// run's report can be read alongside what moved the market that day.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/niftyfolio/internal/infra"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

// Feed is one configured RSS source.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds lists the Indian financial news feeds polled by default.
var DefaultFeeds = []Feed{
	{Name: "Moneycontrol", URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
	{Name: "Economic Times Markets", URL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
	{Name: "LiveMint Markets", URL: "https://www.livemint.com/rss/markets"},
	{Name: "Business Standard Markets", URL: "https://www.business-standard.com/rss/markets-106.rss"},
}

// Service aggregates headlines across the configured feeds.
type Service struct {
	feeds   []Feed
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewService creates a news service over the given feeds; nil means the
// default Indian sources.
func NewService(feeds []Feed) *Service {
	if feeds == nil {
		feeds = DefaultFeeds
	}
	return &Service{
		feeds:   feeds,
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  gofeed.NewParser(),
	}
}

// MarketNews returns recent market headlines from all feeds, newest first.
// A feed that fails to parse is skipped; an error is returned only when
// every feed fails.
func (s *Service) MarketNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("news:market:%d", limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	var articles []models.NewsArticle
	var failed int
	for _, feed := range s.feeds {
		items, err := s.fetchFeed(ctx, feed)
		if err != nil {
			failed++
			continue
		}
		articles = append(articles, items...)
	}
	if failed == len(s.feeds) && len(s.feeds) > 0 {
		return nil, fmt.Errorf("all %d news feeds failed", failed)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	s.cache.Set(cacheKey, articles)
	return articles, nil
}

// StockNews returns headlines mentioning the given NSE symbol.
func (s *Service) StockNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	symbol = utils.NormalizeSymbol(symbol)

	cacheKey := fmt.Sprintf("news:stock:%s:%d", symbol, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	all, err := s.MarketNews(ctx, 0)
	if err != nil {
		return nil, err
	}

	keywords := symbolKeywords(symbol)
	var filtered []models.NewsArticle
	for _, a := range all {
		if matchesAny(a.Title+" "+a.Summary, keywords) {
			filtered = append(filtered, a)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	s.cache.Set(cacheKey, filtered)
	return filtered, nil
}

// fetchFeed parses one RSS feed into articles.
func (s *Service) fetchFeed(ctx context.Context, feed Feed) ([]models.NewsArticle, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := models.NewsArticle{
			Title:   item.Title,
			URL:     item.Link,
			Source:  feed.Name,
			Summary: stripHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	return articles, nil
}

// stripHTML removes markup from feed descriptions.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// symbolKeywords maps an NSE symbol to the names headlines actually use.
func symbolKeywords(symbol string) []string {
	s := strings.ToLower(symbol)
	keywords := []string{s}

	nameMap := map[string][]string{
		"reliance":   {"reliance industries", "ril"},
		"tcs":        {"tata consultancy"},
		"hdfcbank":   {"hdfc bank"},
		"infy":       {"infosys"},
		"icicibank":  {"icici bank"},
		"hindunilvr": {"hindustan unilever", "hul"},
		"sbin":       {"sbi", "state bank"},
		"bhartiartl": {"bharti airtel", "airtel"},
		"kotakbank":  {"kotak mahindra", "kotak bank"},
		"lt":         {"larsen", "l&t"},
		"bajfinance": {"bajaj finance"},
		"axisbank":   {"axis bank"},
		"maruti":     {"maruti suzuki"},
		"tatamotors": {"tata motors"},
		"tatasteel":  {"tata steel"},
		"hcltech":    {"hcl tech", "hcl technologies"},
		"asianpaint": {"asian paints"},
		"sunpharma":  {"sun pharma", "sun pharmaceutical"},
		"ongc":       {"oil and natural gas"},
	}
	if extra, ok := nameMap[s]; ok {
		keywords = append(keywords, extra...)
	}

	return keywords
}

// matchesAny reports whether text contains any keyword, case-insensitive.
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
