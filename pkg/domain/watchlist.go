package domain

import "time"

// WatchlistEntry represents a user's saved interest in a ticker symbol.
// Entries are created and deleted, never mutated in place; (UserID, Symbol)
// is unique per user.
type WatchlistEntry struct {
	ID      int64     `json:"id,omitempty"`
	UserID  string    `json:"-"` // owner, never serialized to API responses
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"addedAt"`
}

// Quote represents a current price snapshot for a symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Logo          string  `json:"logo,omitempty"`
}
