package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/seenimoa/niftyfolio/internal/infra"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

const (
	nseBaseURL     = "https://www.nseindia.com"
	nseCookieTTL   = 5 * time.Minute
	nseDefaultRate = 3 // max requests per second
)

// NSE fetches quotes directly from the NSE India API. NSE rejects requests
// without valid session cookies, so the client warms its cookie jar against
// the NSE homepage before hitting the API.
type NSE struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	client  *http.Client
	baseURL string

	// cookieMu guards cookieExpiry; lookups run concurrently and only one
	// goroutine may warm the jar at a time.
	cookieMu     sync.Mutex
	cookieExpiry time.Time
}

// NewNSE creates a new NSE India price source.
func NewNSE() *NSE {
	jar, _ := cookiejar.New(nil)
	return &NSE{
		cache:   infra.NewCache(2 * time.Minute),
		limiter: infra.NewRateLimiter(nseDefaultRate, time.Second),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL: nseBaseURL,
	}
}

// Name returns the source name.
func (n *NSE) Name() string { return "NSE India" }

// --- NSE JSON response types ---

type nseQuoteResponse struct {
	Info      nseStockInfo `json:"info"`
	PriceInfo nsePriceInfo `json:"priceInfo"`
	Metadata  nseMetadata  `json:"metadata"`
}

type nseStockInfo struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry"`
	ISIN        string `json:"isin"`
}

type nsePriceInfo struct {
	LastPrice     float64 `json:"lastPrice"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	PreviousClose float64 `json:"previousClose"`
}

type nseMetadata struct {
	Series string `json:"series"`
	Symbol string `json:"symbol"`
	ISIN   string `json:"isin"`
	Status string `json:"status"`
}

// LookupPrice returns a near-real-time quote from NSE India.
func (n *NSE) LookupPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = utils.NormalizeSymbol(symbol)

	cacheKey := "nse:quote:" + symbol
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := n.ensureCookies(ctx); err != nil {
		return nil, fmt.Errorf("NSE cookie refresh: %w", err)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/quote-equity?symbol=%s", n.baseURL, symbol)
	data, err := n.nseGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("NSE quote %s: %w", symbol, err)
	}

	var resp nseQuoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse NSE quote: %w", err)
	}

	// NSE answers 200 with an empty body for unknown symbols.
	if resp.Info.Symbol == "" || resp.PriceInfo.LastPrice <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	quote := &models.Quote{
		Symbol:    resp.Info.Symbol,
		Name:      resp.Info.CompanyName,
		LastPrice: resp.PriceInfo.LastPrice,
		PrevClose: resp.PriceInfo.PreviousClose,
		Currency:  "INR",
		Source:    n.Name(),
		Timestamp: utils.NowIST(),
	}

	n.cache.Set(cacheKey, quote)
	return quote, nil
}

// --- Internal helpers ---

// ensureCookies visits the NSE homepage to get session cookies.
func (n *NSE) ensureCookies(ctx context.Context) error {
	n.cookieMu.Lock()
	defer n.cookieMu.Unlock()

	if time.Now().Before(n.cookieExpiry) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch NSE homepage for cookies: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain body

	n.cookieExpiry = time.Now().Add(nseCookieTTL)
	return nil
}

// nseGet performs a GET request to the NSE API with proper headers.
func (n *NSE) nseGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", n.baseURL)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &infra.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return io.ReadAll(resp.Body)
}
