package models

import "time"

// NewsArticle is a single market news item from an RSS feed.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}
