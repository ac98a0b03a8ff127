// Package resolver turns a universe of securities into priced securities.
// It drives concurrent price lookups against a quote source, retrying
// transient failures with exponential backoff, and reports which symbols
// could not be priced.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/niftyfolio/internal/quote"
	"github.com/seenimoa/niftyfolio/pkg/models"
)

// ErrTotalOutage is returned when not a single security could be priced.
// A run where nothing resolves would produce a meaningless allocation, so it
// is surfaced as fatal rather than as per-item failures.
var ErrTotalOutage = fmt.Errorf("no security could be priced from any source")

// Config controls lookup timeouts, retries and parallelism.
type Config struct {
	// Timeout bounds a single lookup attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int
	// BackoffBase is the delay before the first retry; subsequent retries
	// double it (BackoffBase * 2^attempt), capped at BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// Concurrency bounds the number of in-flight lookups.
	Concurrency int
}

// DefaultConfig returns the standard resolver settings.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 1 * time.Second,
		BackoffCap:  30 * time.Second,
		Concurrency: 5,
	}
}

// Failure records why a single symbol could not be priced.
type Failure struct {
	Symbol   string `json:"symbol"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// Resolver prices securities against a quote source.
type Resolver struct {
	source quote.Source
	cfg    Config
	logger *zap.Logger

	// sleep is swappable so tests can run retries without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Resolver over the given source. Zero config fields fall back
// to defaults.
func New(source quote.Source, cfg Config, logger *zap.Logger) *Resolver {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source: source,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Resolve prices every security in place. Per-symbol failures are returned
// as data in input order; the error is non-nil only for fatal conditions
// (cancelled context, or a total outage where nothing resolved).
func (r *Resolver) Resolve(ctx context.Context, securities []models.Security) ([]Failure, error) {
	if len(securities) == 0 {
		return nil, nil
	}

	r.logger.Info("resolving prices",
		zap.Int("securities", len(securities)),
		zap.String("source", r.source.Name()),
		zap.Int("concurrency", r.cfg.Concurrency))

	// failures[i] is non-nil if securities[i] could not be priced. Each
	// goroutine writes only its own slot, so no mutex is needed.
	failures := make([]*Failure, len(securities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i := range securities {
		i := i
		g.Go(func() error {
			sec := &securities[i]
			if sec.PriceAvailable() {
				// Preloaded price (legacy CSV): nothing to fetch.
				return nil
			}
			price, attempts, err := r.resolveOne(gctx, sec.Symbol)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("price resolution failed",
					zap.String("symbol", sec.Symbol),
					zap.Int("attempts", attempts),
					zap.Error(err))
				failures[i] = &Failure{
					Symbol:   sec.Symbol,
					Reason:   err.Error(),
					Attempts: attempts,
				}
				return nil
			}
			if err := sec.SetPrice(price); err != nil {
				failures[i] = &Failure{
					Symbol:   sec.Symbol,
					Reason:   err.Error(),
					Attempts: attempts,
				}
				return nil
			}
			r.logger.Debug("price resolved",
				zap.String("symbol", sec.Symbol),
				zap.Float64("price", price),
				zap.Int("attempts", attempts))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("price resolution aborted: %w", err)
	}

	var report []Failure
	for _, f := range failures {
		if f != nil {
			report = append(report, *f)
		}
	}

	if len(report) == len(securities) {
		return report, ErrTotalOutage
	}

	r.logger.Info("price resolution complete",
		zap.Int("resolved", len(securities)-len(report)),
		zap.Int("failed", len(report)))
	return report, nil
}

// resolveOne looks up one symbol, retrying failed attempts with exponential
// backoff. It returns the price and the number of attempts made.
func (r *Resolver) resolveOne(ctx context.Context, symbol string) (float64, int, error) {
	var lastErr error

	attempts := 0
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt-1)); err != nil {
				return 0, attempts, err
			}
		}
		attempts++

		q, err := r.lookup(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if q.LastPrice <= 0 {
			lastErr = fmt.Errorf("non-positive price %.2f for %s", q.LastPrice, symbol)
			continue
		}
		return q.LastPrice, attempts, nil
	}

	return 0, attempts, lastErr
}

// lookup performs a single attempt with the per-item timeout applied.
func (r *Resolver) lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.source.LookupPrice(lookupCtx, symbol)
}

// backoff returns the delay before retry number attempt (zero-based),
// doubling from BackoffBase and capped at BackoffCap.
func (r *Resolver) backoff(attempt int) time.Duration {
	d := r.cfg.BackoffBase << uint(attempt)
	if d > r.cfg.BackoffCap || d <= 0 {
		d = r.cfg.BackoffCap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
