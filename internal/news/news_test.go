package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Markets</title>
<item>
  <title>Sensex rallies 500 points</title>
  <link>https://example.com/a</link>
  <description>&lt;p&gt;Benchmark indices closed higher.&lt;/p&gt;</description>
  <pubDate>Wed, 04 Mar 2026 10:00:00 +0530</pubDate>
</item>
<item>
  <title>Infosys wins large deal</title>
  <link>https://example.com/b</link>
  <description>Infosys signed a multi-year contract.</description>
  <pubDate>Wed, 04 Mar 2026 11:00:00 +0530</pubDate>
</item>
</channel></rss>`

func newTestService(url string) *Service {
	return NewService([]Feed{{Name: "Test Markets", URL: url}})
}

func TestMarketNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	articles, err := s.MarketNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("MarketNews() error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(articles))
	}
	// Newest first.
	if articles[0].Title != "Infosys wins large deal" {
		t.Errorf("first article = %q, want newest", articles[0].Title)
	}
	// HTML stripped from the summary.
	if articles[1].Summary != "Benchmark indices closed higher." {
		t.Errorf("Summary = %q", articles[1].Summary)
	}
	if articles[0].Source != "Test Markets" {
		t.Errorf("Source = %q", articles[0].Source)
	}
}

func TestMarketNewsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	articles, err := s.MarketNews(context.Background(), 1)
	if err != nil {
		t.Fatalf("MarketNews() error: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("articles = %d, want 1", len(articles))
	}
}

func TestStockNewsFiltersBySymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	articles, err := s.StockNews(context.Background(), "INFY", 10)
	if err != nil {
		t.Fatalf("StockNews() error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(articles))
	}
	if articles[0].Title != "Infosys wins large deal" {
		t.Errorf("article = %q", articles[0].Title)
	}
}

func TestMarketNewsAllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestService(srv.URL)
	if _, err := s.MarketNews(context.Background(), 10); err == nil {
		t.Fatal("expected error when every feed fails")
	}
}
