package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/niftyfolio/internal/quote"
	"github.com/seenimoa/niftyfolio/pkg/models"
)

// scriptedSource returns a canned sequence of results per symbol.
type scriptedSource struct {
	mu      sync.Mutex
	results map[string][]lookupResult
	calls   map[string]int
}

type lookupResult struct {
	price float64
	err   error
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		results: make(map[string][]lookupResult),
		calls:   make(map[string]int),
	}
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) LookupPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.results[symbol]
	call := s.calls[symbol]
	s.calls[symbol]++

	if len(seq) == 0 {
		return nil, quote.ErrSymbolNotFound
	}
	if call >= len(seq) {
		call = len(seq) - 1 // repeat the last scripted result
	}
	r := seq[call]
	if r.err != nil {
		return nil, r.err
	}
	return &models.Quote{Symbol: symbol, LastPrice: r.price}, nil
}

func (s *scriptedSource) callCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

// newTestResolver wires a resolver with a no-op sleep that records delays.
func newTestResolver(src quote.Source, cfg Config) (*Resolver, *[]time.Duration) {
	r := New(src, cfg, nil)
	var mu sync.Mutex
	delays := &[]time.Duration{}
	r.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		*delays = append(*delays, d)
		mu.Unlock()
		return nil
	}
	return r, delays
}

func mkSecurities(symbols ...string) []models.Security {
	secs := make([]models.Security, len(symbols))
	for i, s := range symbols {
		secs[i] = models.Security{Symbol: s, CompanyName: s + " Ltd"}
	}
	return secs
}

func TestResolveAllSucceed(t *testing.T) {
	src := newScriptedSource()
	src.results["RELIANCE"] = []lookupResult{{price: 2450.75}}
	src.results["TCS"] = []lookupResult{{price: 3890.25}}

	r, _ := newTestResolver(src, Config{})
	secs := mkSecurities("RELIANCE", "TCS")

	failures, err := r.Resolve(context.Background(), secs)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	for _, sec := range secs {
		if !sec.Resolved || sec.CurrentPrice <= 0 {
			t.Errorf("%s not resolved: %+v", sec.Symbol, sec)
		}
	}
	if secs[0].CurrentPrice != 2450.75 {
		t.Errorf("RELIANCE price = %v, want 2450.75", secs[0].CurrentPrice)
	}
}

func TestResolveRetriesTransientFailure(t *testing.T) {
	src := newScriptedSource()
	src.results["INFY"] = []lookupResult{
		{err: fmt.Errorf("connection reset")},
		{err: quote.ErrRateLimited},
		{price: 1534.80},
	}

	r, delays := newTestResolver(src, Config{MaxRetries: 3, BackoffBase: time.Second, BackoffCap: 30 * time.Second})
	secs := mkSecurities("INFY")

	failures, err := r.Resolve(context.Background(), secs)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	if secs[0].CurrentPrice != 1534.80 {
		t.Errorf("price = %v, want 1534.80", secs[0].CurrentPrice)
	}
	if src.callCount("INFY") != 3 {
		t.Errorf("lookup called %d times, want 3", src.callCount("INFY"))
	}
	// Backoff doubles: 1s before retry 1, 2s before retry 2.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestResolveBackoffCap(t *testing.T) {
	src := newScriptedSource()
	src.results["SLOW"] = []lookupResult{{err: fmt.Errorf("timeout")}}
	src.results["OK"] = []lookupResult{{price: 100}}

	r, delays := newTestResolver(src, Config{MaxRetries: 5, BackoffBase: 4 * time.Second, BackoffCap: 10 * time.Second})
	secs := mkSecurities("SLOW", "OK")

	if _, err := r.Resolve(context.Background(), secs); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	// 4s, 8s, then capped at 10s for the remaining retries.
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestResolveRecordsFailuresInInputOrder(t *testing.T) {
	src := newScriptedSource()
	src.results["A"] = []lookupResult{{price: 10}}
	// B and D have no script: every lookup returns not-found.
	src.results["C"] = []lookupResult{{price: 30}}

	r, _ := newTestResolver(src, Config{MaxRetries: 1})
	secs := mkSecurities("A", "B", "C", "D")

	failures, err := r.Resolve(context.Background(), secs)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}
	if failures[0].Symbol != "B" || failures[1].Symbol != "D" {
		t.Errorf("failure order = %s, %s; want B, D", failures[0].Symbol, failures[1].Symbol)
	}
	if failures[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2 (initial + 1 retry)", failures[0].Attempts)
	}
	if failures[0].Reason == "" {
		t.Error("failure reason should not be empty")
	}
	if secs[1].Resolved {
		t.Error("B should stay unresolved")
	}
}

func TestResolveRejectsNonPositivePrice(t *testing.T) {
	src := newScriptedSource()
	src.results["ZERO"] = []lookupResult{{price: 0}}
	src.results["OK"] = []lookupResult{{price: 100}}

	r, _ := newTestResolver(src, Config{MaxRetries: 1})
	secs := mkSecurities("ZERO", "OK")

	failures, err := r.Resolve(context.Background(), secs)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(failures) != 1 || failures[0].Symbol != "ZERO" {
		t.Fatalf("failures = %v, want single ZERO entry", failures)
	}
	if secs[0].Resolved {
		t.Error("zero-price security must stay unresolved")
	}
	// Non-positive prices are retried like any other failure.
	if src.callCount("ZERO") != 2 {
		t.Errorf("lookup called %d times, want 2", src.callCount("ZERO"))
	}
}

func TestResolveTotalOutage(t *testing.T) {
	src := newScriptedSource() // nothing scripted: every symbol fails
	r, _ := newTestResolver(src, Config{MaxRetries: 0})
	secs := mkSecurities("A", "B")

	failures, err := r.Resolve(context.Background(), secs)
	if !errors.Is(err, ErrTotalOutage) {
		t.Fatalf("error = %v, want ErrTotalOutage", err)
	}
	if len(failures) != 2 {
		t.Errorf("failures = %d, want 2 (report still returned)", len(failures))
	}
}

func TestResolveSkipsPreloadedPrices(t *testing.T) {
	src := newScriptedSource()
	src.results["FETCH"] = []lookupResult{{price: 200}}

	r, _ := newTestResolver(src, Config{})
	secs := []models.Security{
		{Symbol: "PRELOADED", CompanyName: "Preloaded Ltd", CurrentPrice: 99.5, Resolved: true},
		{Symbol: "FETCH", CompanyName: "Fetch Ltd"},
	}

	failures, err := r.Resolve(context.Background(), secs)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures = %v, want none", failures)
	}
	if src.callCount("PRELOADED") != 0 {
		t.Errorf("preloaded symbol looked up %d times, want 0", src.callCount("PRELOADED"))
	}
	if secs[0].CurrentPrice != 99.5 {
		t.Errorf("preloaded price overwritten: %v", secs[0].CurrentPrice)
	}
	if secs[1].CurrentPrice != 200 {
		t.Errorf("FETCH price = %v, want 200", secs[1].CurrentPrice)
	}
}

func TestResolveEmptyUniverse(t *testing.T) {
	r, _ := newTestResolver(newScriptedSource(), Config{})
	failures, err := r.Resolve(context.Background(), nil)
	if err != nil || failures != nil {
		t.Fatalf("Resolve(nil) = %v, %v; want nil, nil", failures, err)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	src := newScriptedSource()
	src.results["A"] = []lookupResult{{price: 10}}

	r, _ := newTestResolver(src, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, mkSecurities("A"))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
