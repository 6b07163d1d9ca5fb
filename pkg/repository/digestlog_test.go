package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestLogRepository(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	seedUser(t, repos, "u1", "u1@example.com", "User One")

	day1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unsent by default", func(t *testing.T) {
		sent, err := repos.DigestLog.WasSent(ctx, "u1", day1)
		require.NoError(t, err)
		assert.False(t, sent)
	})

	t.Run("mark then check", func(t *testing.T) {
		require.NoError(t, repos.DigestLog.MarkSent(ctx, "u1", day1))

		sent, err := repos.DigestLog.WasSent(ctx, "u1", day1)
		require.NoError(t, err)
		assert.True(t, sent)
	})

	t.Run("double mark is a no-op", func(t *testing.T) {
		require.NoError(t, repos.DigestLog.MarkSent(ctx, "u1", day1.Add(time.Hour)))

		var count int
		require.NoError(t, repos.DB.Get(&count, "SELECT count(*) FROM digest_log WHERE user_id = ?", "u1"))
		assert.Equal(t, 1, count)
	})

	t.Run("next day is a fresh key", func(t *testing.T) {
		day2 := day1.AddDate(0, 0, 1)
		sent, err := repos.DigestLog.WasSent(ctx, "u1", day2)
		require.NoError(t, err)
		assert.False(t, sent)

		require.NoError(t, repos.DigestLog.MarkSent(ctx, "u1", day2))
		sent, err = repos.DigestLog.WasSent(ctx, "u1", day2)
		require.NoError(t, err)
		assert.True(t, sent)
	})

	t.Run("users are independent", func(t *testing.T) {
		seedUser(t, repos, "u2", "u2@example.com", "User Two")
		sent, err := repos.DigestLog.WasSent(ctx, "u2", day1)
		require.NoError(t, err)
		assert.False(t, sent)
	})
}
