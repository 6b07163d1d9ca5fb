package domain

import (
	"strconv"
	"time"
)

// RawArticle is an article as returned by the upstream news API.
// Fields are loosely typed, upstream omits most of them freely.
type RawArticle struct {
	ID       int64  `json:"id,omitempty"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Image    string `json:"image,omitempty"`
	Datetime int64  `json:"datetime"` // unix seconds
	Category string `json:"category,omitempty"`
}

// Valid reports whether the upstream article carries the minimum fields
// required to be usable: non-empty headline and url, positive datetime.
func (a *RawArticle) Valid() bool {
	return a.Headline != "" && a.URL != "" && a.Datetime > 0
}

// Article is the normalized form of a RawArticle, immutable once produced
type Article struct {
	ID       string    `json:"id"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary"`
	Source   string    `json:"source"`
	URL      string    `json:"url"`
	Image    string    `json:"image,omitempty"`
	Datetime time.Time `json:"datetime"`
}

// FormatArticle normalizes a raw upstream article: id falls back to url,
// source defaults to "Unknown", datetime converted from unix seconds.
func FormatArticle(raw *RawArticle) Article {
	id := raw.URL
	if raw.ID != 0 {
		id = strconv.FormatInt(raw.ID, 10)
	}
	source := raw.Source
	if source == "" {
		source = "Unknown"
	}
	return Article{
		ID:       id,
		Headline: raw.Headline,
		Summary:  raw.Summary,
		Source:   source,
		URL:      raw.URL,
		Image:    raw.Image,
		Datetime: time.Unix(raw.Datetime, 0).UTC(),
	}
}

// DedupKey returns the first non-empty of id, url, headline for general-mode
// deduplication
func (a *RawArticle) DedupKey() string {
	if a.ID != 0 {
		return strconv.FormatInt(a.ID, 10)
	}
	if a.URL != "" {
		return a.URL
	}
	return a.Headline
}
