package quote

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/seenimoa/niftyfolio/pkg/models"
)

// Chain tries a list of sources in order and returns the first successful
// quote. A not-found or transient failure from one source still tries the
// next; only when every source fails does the chain return an error, with
// the per-source failures joined.
type Chain struct {
	sources []Source
	logger  *zap.Logger
}

// NewChain creates a fallback chain over the given sources, tried in order.
func NewChain(logger *zap.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{sources: sources, logger: logger}
}

// NewDefaultChain creates the standard chain: Yahoo Finance first, NSE India
// second, Screener.in as last resort.
func NewDefaultChain(logger *zap.Logger) *Chain {
	return NewChain(logger, NewYFinance(), NewNSE(), NewScreener())
}

// Name returns the chain's composite name.
func (c *Chain) Name() string { return "chain" }

// LookupPrice queries each source in order until one returns a quote.
func (c *Chain) LookupPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("no price sources configured")
	}

	var errs []error
	for _, src := range c.sources {
		quote, err := src.LookupPrice(ctx, symbol)
		if err == nil {
			return quote, nil
		}
		if ctx.Err() != nil {
			// Context gone; further sources would fail the same way.
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			break
		}
		c.logger.Debug("price source failed, trying next",
			zap.String("source", src.Name()),
			zap.String("symbol", symbol),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}

	return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
}
