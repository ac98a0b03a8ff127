package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(1 * time.Second)

	c.Set("key1", "value1")
	v, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v != "value1" {
		t.Fatalf("got %v, want value1", v)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(1 * time.Second)
	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(1 * time.Millisecond)
	c.Set("key", "val")

	// Wait for expiry.
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("key")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(1 * time.Hour)
	c.Set("key", "val")
	c.Invalidate("key")
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected cache miss after invalidation")
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() %d error: %v", i, err)
		}
	}
}

func TestRateLimiterRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx := context.Background()

	// Drain the only token.
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := rl.Wait(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestDoGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("missing default user agent")
		}
		if r.Header.Get("X-Custom") != "yes" {
			t.Errorf("custom header not forwarded")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, status, err := DoGet(context.Background(), srv.Client(), srv.URL, map[string]string{"X-Custom": "yes"})
	if err != nil {
		t.Fatalf("DoGet() error: %v", err)
	}
	defer body.Close()
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

func TestDoGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, status, err := DoGet(context.Background(), srv.Client(), srv.URL, nil)
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
}
