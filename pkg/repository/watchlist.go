package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/allstar/stockwatch/pkg/domain"
)

// WatchlistRepository handles watchlist-related database operations
type WatchlistRepository struct {
	db *sqlx.DB
}

// watchlistSQL represents a watchlist entry for SQL operations
type watchlistSQL struct {
	ID      int64     `db:"id"`
	UserID  string    `db:"user_id"`
	Symbol  string    `db:"symbol"`
	Company string    `db:"company"`
	AddedAt time.Time `db:"added_at"`
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(database *sqlx.DB) *WatchlistRepository {
	return &WatchlistRepository{db: database}
}

// NormalizeSymbol trims and uppercases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Add inserts a new watchlist entry for the user. Symbol is normalized to
// uppercase and company name trimmed. Returns ErrDuplicate when the user
// already watches the symbol.
func (r *WatchlistRepository) Add(ctx context.Context, userID, symbol, company string) (*domain.WatchlistEntry, error) {
	entry := &watchlistSQL{
		UserID:  userID,
		Symbol:  NormalizeSymbol(symbol),
		Company: strings.TrimSpace(company),
		AddedAt: time.Now().UTC(),
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		query := `
			INSERT INTO watchlist (user_id, symbol, company, added_at)
			VALUES (:user_id, :symbol, :company, :added_at)
		`
		result, err := r.db.NamedExecContext(ctx, query, entry)
		if err != nil {
			if isConstraintError(err) {
				return &criticalError{err: ErrDuplicate}
			}
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("add watchlist entry: %w", err)}
		}

		id, err := result.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get insert id: %w", err)}
		}
		entry.ID = id
		return nil
	}, ErrDuplicate) // duplicates are terminal, no point retrying
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return &domain.WatchlistEntry{
		ID:      entry.ID,
		UserID:  entry.UserID,
		Symbol:  entry.Symbol,
		Company: entry.Company,
		AddedAt: entry.AddedAt,
	}, nil
}

// Remove deletes a watchlist entry by user and normalized symbol.
// Returns ErrNotFound when the user does not watch the symbol.
func (r *WatchlistRepository) Remove(ctx context.Context, userID, symbol string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM watchlist WHERE user_id = ? AND symbol = ?",
		userID, NormalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's watchlist entries, most recently added first
func (r *WatchlistRepository) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	var rows []watchlistSQL
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM watchlist WHERE user_id = ? ORDER BY added_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	entries := make([]domain.WatchlistEntry, len(rows))
	for i, row := range rows {
		entries[i] = domain.WatchlistEntry{
			ID:      row.ID,
			UserID:  row.UserID,
			Symbol:  row.Symbol,
			Company: row.Company,
			AddedAt: row.AddedAt,
		}
	}
	return entries, nil
}

// SymbolsByUserID returns the ticker symbols on the user's watchlist
func (r *WatchlistRepository) SymbolsByUserID(ctx context.Context, userID string) ([]string, error) {
	var symbols []string
	err := r.db.SelectContext(ctx, &symbols,
		"SELECT symbol FROM watchlist WHERE user_id = ? ORDER BY added_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("get watchlist symbols: %w", err)
	}
	return symbols, nil
}

// SymbolsByEmail resolves a user by email and returns their watchlist symbols.
// Any miss (unknown email, empty watchlist) yields an empty slice, not an
// error - the digest pipeline treats missing data as "general news".
func (r *WatchlistRepository) SymbolsByEmail(ctx context.Context, email string) ([]string, error) {
	var userID string
	err := r.db.GetContext(ctx, &userID, "SELECT id FROM users WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user by email: %w", err)
	}

	symbols, err := r.SymbolsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}
