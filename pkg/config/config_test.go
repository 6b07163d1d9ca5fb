package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
finnhub:
  api_key: test-finnhub-key
llm:
  model: gpt-4o-mini
smtp:
  enabled: false
`

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "https://finnhub.io/api/v1", cfg.Finnhub.BaseURL)
		assert.Equal(t, time.Hour, cfg.Finnhub.CacheTTL)
		assert.Equal(t, 2, cfg.LLM.MaxRetries)
		assert.Equal(t, 2*time.Second, cfg.LLM.RetryDelay)
		require.NotNil(t, cfg.Digest.Hour)
		assert.Equal(t, 12, *cfg.Digest.Hour)
		assert.Equal(t, 5, cfg.Digest.MaxWorkers)

		assert.Equal(t, 100, cfg.RateLimits.API.MaxRequests)
		assert.Equal(t, time.Hour, cfg.RateLimits.API.Window)
		assert.Equal(t, 10, cfg.RateLimits.Strict.MaxRequests)
		assert.Equal(t, 1000, cfg.RateLimits.Generous.MaxRequests)
		assert.Equal(t, 5, cfg.RateLimits.Auth.MaxRequests)
		assert.Equal(t, 15*time.Minute, cfg.RateLimits.Auth.Window)
		assert.Equal(t, 200, cfg.RateLimits.Quote.MaxRequests)
	})

	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("TEST_FINNHUB_KEY", "key-from-env")

		cfg, err := Load(writeConfig(t, `
finnhub:
  api_key: ${TEST_FINNHUB_KEY}
llm:
  model: gpt-4o-mini
smtp:
  enabled: false
`))
		require.NoError(t, err)
		assert.Equal(t, "key-from-env", cfg.Finnhub.APIKey)
	})

	t.Run("explicit values win over defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
server:
  listen: ":9090"
  timeout: 5s
finnhub:
  api_key: k
llm:
  model: m
smtp:
  enabled: false
digest:
  hour: 7
rate_limits:
  api:
    max_requests: 42
    window: 10m
`))
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
		require.NotNil(t, cfg.Digest.Hour)
		assert.Equal(t, 7, *cfg.Digest.Hour)
		assert.Equal(t, 42, cfg.RateLimits.API.MaxRequests)
		assert.Equal(t, 10*time.Minute, cfg.RateLimits.API.Window)
	})

	t.Run("digest hour zero survives defaulting", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
finnhub:
  api_key: k
llm:
  model: m
smtp:
  enabled: false
digest:
  hour: 0
`))
		require.NoError(t, err)
		require.NotNil(t, cfg.Digest.Hour)
		assert.Equal(t, 0, *cfg.Digest.Hour, "midnight must not be rewritten to the default")
	})

	t.Run("smtp defaults to enabled when the key is omitted", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
finnhub:
  api_key: k
llm:
  model: m
smtp:
  host: smtp.example.com
  from: digest@example.com
`))
		require.NoError(t, err)
		assert.False(t, cfg.SMTP.Disabled())
		require.NotNil(t, cfg.SMTP.Enabled)
		assert.True(t, *cfg.SMTP.Enabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "finnhub: [broken"))
		require.Error(t, err)
	})
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing finnhub key",
			config:  "llm:\n  model: m\nsmtp:\n  enabled: false\n",
			wantErr: "finnhub.api_key is required",
		},
		{
			name:    "missing llm model",
			config:  "finnhub:\n  api_key: k\nsmtp:\n  enabled: false\n",
			wantErr: "llm.model is required",
		},
		{
			name:    "smtp enabled without host",
			config:  "finnhub:\n  api_key: k\nllm:\n  model: m\nsmtp:\n  enabled: true\n  from: a@b.c\n",
			wantErr: "smtp.host is required",
		},
		{
			name:    "digest hour out of range",
			config:  "finnhub:\n  api_key: k\nllm:\n  model: m\nsmtp:\n  enabled: false\ndigest:\n  hour: 24\n",
			wantErr: "digest.hour",
		},
		{
			name:    "temperature out of range",
			config:  "finnhub:\n  api_key: k\nllm:\n  model: m\n  temperature: 3\nsmtp:\n  enabled: false\n",
			wantErr: "llm.temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
