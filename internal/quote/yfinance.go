package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/niftyfolio/internal/infra"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

const yfBaseURL = "https://query1.finance.yahoo.com"

// YFinance fetches quotes from the Yahoo Finance v8 chart API. NSE symbols
// are looked up with the ".NS" suffix.
type YFinance struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	baseURL string
}

// NewYFinance creates a new Yahoo Finance price source.
func NewYFinance() *YFinance {
	return &YFinance{
		cache:   infra.NewCache(5 * time.Minute),
		limiter: infra.NewRateLimiter(5, time.Second), // 5 req/s
		baseURL: yfBaseURL,
	}
}

// Name returns the source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta yfChartMeta `json:"meta"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// LookupPrice returns a near-real-time quote from Yahoo Finance.
func (y *YFinance) LookupPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	yfSymbol := utils.ToYahooSymbol(symbol)

	cacheKey := "yf:quote:" + yfSymbol
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", y.baseURL, yfSymbol)
	body, status, err := infra.DoGet(ctx, nil, url, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		if status == http.StatusTooManyRequests {
			return nil, fmt.Errorf("yfinance %s: %w", yfSymbol, ErrRateLimited)
		}
		// Yahoo answers 404 for unknown symbols.
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("yfinance %s: %w", yfSymbol, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("yfinance chart %s: %w", yfSymbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance API error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%w: %s returned no price", ErrSymbolNotFound, symbol)
	}

	quote := &models.Quote{
		Symbol:    utils.FromYahooSymbol(meta.Symbol),
		Name:      coalesce(meta.LongName, meta.ShortName),
		LastPrice: meta.RegularMarketPrice,
		PrevClose: meta.ChartPreviousClose,
		Currency:  coalesce(meta.Currency, "INR"),
		Source:    y.Name(),
		Timestamp: time.Unix(meta.RegularMarketTime, 0),
	}

	y.cache.Set(cacheKey, quote)
	return quote, nil
}
