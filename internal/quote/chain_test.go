package quote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/seenimoa/niftyfolio/pkg/models"
)

// fakeSource is a scripted Source for chain tests.
type fakeSource struct {
	name  string
	quote *models.Quote
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) LookupPrice(_ context.Context, _ string) (*models.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &fakeSource{name: "first", quote: &models.Quote{Symbol: "TCS", LastPrice: 3890.25}}
	second := &fakeSource{name: "second", quote: &models.Quote{Symbol: "TCS", LastPrice: 1.0}}
	chain := NewChain(nil, first, second)

	q, err := chain.LookupPrice(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("LookupPrice() error: %v", err)
	}
	if q.LastPrice != 3890.25 {
		t.Errorf("LastPrice = %v, want 3890.25", q.LastPrice)
	}
	if second.calls != 0 {
		t.Errorf("second source called %d times, want 0", second.calls)
	}
}

func TestChainFallsBackOnNotFound(t *testing.T) {
	first := &fakeSource{name: "first", err: fmt.Errorf("lookup: %w", ErrSymbolNotFound)}
	second := &fakeSource{name: "second", quote: &models.Quote{Symbol: "INFY", LastPrice: 1534.80}}
	chain := NewChain(nil, first, second)

	q, err := chain.LookupPrice(context.Background(), "INFY")
	if err != nil {
		t.Fatalf("LookupPrice() error: %v", err)
	}
	if q.LastPrice != 1534.80 {
		t.Errorf("LastPrice = %v, want 1534.80", q.LastPrice)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestChainJoinsAllErrors(t *testing.T) {
	first := &fakeSource{name: "first", err: ErrRateLimited}
	second := &fakeSource{name: "second", err: ErrSymbolNotFound}
	chain := NewChain(nil, first, second)

	_, err := chain.LookupPrice(context.Background(), "XYZ")
	if err == nil {
		t.Fatal("expected error when all sources fail")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error should wrap ErrRateLimited: %v", err)
	}
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("error should wrap ErrSymbolNotFound: %v", err)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeSource{name: "first", err: context.Canceled}
	second := &fakeSource{name: "second", quote: &models.Quote{Symbol: "TCS"}}
	chain := NewChain(nil, first, second)

	cancel()
	_, err := chain.LookupPrice(ctx, "TCS")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if second.calls != 0 {
		t.Errorf("second source called after context cancel")
	}
}

func TestChainNoSources(t *testing.T) {
	chain := NewChain(nil)
	if _, err := chain.LookupPrice(context.Background(), "TCS"); err == nil {
		t.Fatal("expected error with no sources")
	}
}
