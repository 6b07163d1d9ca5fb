package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
)

// DigestLogRepository records which users already received a digest on a
// given calendar day, so a crashed batch can be re-run without duplicate sends
type DigestLogRepository struct {
	db *sqlx.DB
}

// NewDigestLogRepository creates a new digest log repository
func NewDigestLogRepository(database *sqlx.DB) *DigestLogRepository {
	return &DigestLogRepository{db: database}
}

// day formats a timestamp as the dedupe key, UTC calendar date
func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MarkSent records a successful delivery for the user on the given day.
// Recording the same (user, day) twice is a no-op.
func (r *DigestLogRepository) MarkSent(ctx context.Context, userID string, at time.Time) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO digest_log (user_id, day, sent_at) VALUES (?, ?, ?) ON CONFLICT (user_id, day) DO NOTHING",
			userID, day(at), at.UTC())
		if err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("mark digest sent: %w", err)}
		}
		return nil
	})
}

// WasSent reports whether the user already received a digest on the given day
func (r *DigestLogRepository) WasSent(ctx context.Context, userID string, at time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM digest_log WHERE user_id = ? AND day = ?)",
		userID, day(at))
	if err != nil {
		return false, fmt.Errorf("check digest sent: %w", err)
	}
	return exists, nil
}
