package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/niftyfolio/internal/infra"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

const screenerBaseURL = "https://www.screener.in"

// Screener scrapes Screener.in company pages. It is the slowest source and
// sits last in the fallback chain, but it is also the only one that exposes
// fundamental ratios, which the metrics command uses.
type Screener struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	baseURL string
}

// NewScreener creates a new Screener.in source.
func NewScreener() *Screener {
	return &Screener{
		cache:   infra.NewCache(30 * time.Minute),
		limiter: infra.NewRateLimiter(1, time.Second), // conservative: 1 req/s
		baseURL: screenerBaseURL,
	}
}

// Name returns the source name.
func (s *Screener) Name() string { return "Screener.in" }

// LookupPrice returns the current price scraped from Screener.in.
func (s *Screener) LookupPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = utils.NormalizeSymbol(symbol)

	cacheKey := "scr:quote:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	doc, err := s.fetchPage(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var price float64
	doc.Find("#top-ratios li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(".name").Text())
		if strings.Contains(name, "Current Price") {
			price = parseScreenerNumber(strings.TrimSpace(sel.Find(".number").Text()))
		}
	})
	if price <= 0 {
		return nil, fmt.Errorf("%w: %s has no price on screener.in", ErrSymbolNotFound, symbol)
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	quote := &models.Quote{
		Symbol:    symbol,
		Name:      name,
		LastPrice: price,
		Currency:  "INR",
		Source:    s.Name(),
		Timestamp: utils.NowIST(),
	}

	s.cache.Set(cacheKey, quote)
	return quote, nil
}

// GetRatios returns key fundamental ratios scraped from Screener.in.
func (s *Screener) GetRatios(ctx context.Context, symbol string) (*models.Ratios, error) {
	symbol = utils.NormalizeSymbol(symbol)

	cacheKey := "scr:ratios:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*models.Ratios), nil
	}

	doc, err := s.fetchPage(ctx, symbol)
	if err != nil {
		return nil, err
	}

	ratios := &models.Ratios{Symbol: symbol}

	// Screener.in shows ratios in a top-level "ratios" list.
	doc.Find("#top-ratios li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(".name").Text())
		val := parseScreenerNumber(strings.TrimSpace(sel.Find(".number").Text()))

		switch {
		case strings.Contains(name, "Current Price"):
			ratios.CurrentPrice = val
		case strings.Contains(name, "Stock P/E"):
			ratios.PE = val
		case strings.Contains(name, "Price to book"):
			ratios.PB = val
		case strings.Contains(name, "Book Value"):
			ratios.BookValue = val
		case strings.Contains(name, "Dividend Yield"):
			ratios.DividendYield = val
		case strings.Contains(name, "ROCE"):
			ratios.ROCE = val
		case strings.Contains(name, "ROE"):
			ratios.ROE = val
		case strings.Contains(name, "EPS"):
			ratios.EPS = val
		case strings.Contains(name, "Market Cap"):
			ratios.MarketCap = val
		}
	})

	s.cache.SetWithTTL(cacheKey, ratios, 1*time.Hour)
	return ratios, nil
}

// --- Internal helpers ---

// fetchPage downloads and parses the Screener.in company page.
func (s *Screener) fetchPage(ctx context.Context, symbol string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/company/%s/consolidated/", s.baseURL, symbol)
	body, _, err := infra.DoGet(ctx, nil, url, map[string]string{
		"Accept": "text/html",
	})
	if err != nil {
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			// Try standalone if consolidated not found.
			url = fmt.Sprintf("%s/company/%s/", s.baseURL, symbol)
			body, _, err = infra.DoGet(ctx, nil, url, map[string]string{
				"Accept": "text/html",
			})
			if err != nil {
				if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
					return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
				}
				return nil, fmt.Errorf("screener.in %s: %w", symbol, err)
			}
		} else {
			return nil, fmt.Errorf("screener.in %s: %w", symbol, err)
		}
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse screener HTML: %w", err)
	}

	return doc, nil
}

// parseScreenerNumber parses a number from Screener.in format.
// Handles commas, percentages, rupee signs, and Cr/Lakh suffixes.
func parseScreenerNumber(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.TrimSpace(s)

	multiplier := 1.0
	if strings.HasSuffix(s, "Cr") || strings.HasSuffix(s, "Cr.") {
		s = strings.TrimSuffix(s, "Cr.")
		s = strings.TrimSuffix(s, "Cr")
		s = strings.TrimSpace(s)
		multiplier = 1e7 // 1 Crore = 10 million
	} else if strings.HasSuffix(s, "Lakh") || strings.HasSuffix(s, "L") {
		s = strings.TrimSuffix(s, "Lakh")
		s = strings.TrimSuffix(s, "L")
		s = strings.TrimSpace(s)
		multiplier = 1e5
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}
