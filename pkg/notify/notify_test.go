package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar/stockwatch/pkg/config"
)

func TestEmailSender_Disabled(t *testing.T) {
	disabled := false
	s := NewEmailSender(config.SMTPConfig{Enabled: &disabled})
	err := s.Send(Message{To: "u@example.com", Subject: "hi", Text: "hello"})
	require.NoError(t, err)
}

func TestRenderWelcome(t *testing.T) {
	msg := RenderWelcome("Alice", "alice@example.com", "Great to have a dividend investor aboard.")

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Welcome to Allstar!", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi Alice,")
	assert.Contains(t, msg.HTML, "Great to have a dividend investor aboard.")
	assert.NotContains(t, msg.HTML, "{{name}}")
	assert.NotContains(t, msg.HTML, "{{intro}}")
	assert.Contains(t, msg.Text, "Alice")
}

func TestRenderNewsSummary(t *testing.T) {
	date := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	msg := RenderNewsSummary("Bob", "bob@example.com", "<p>Markets rallied.</p>", 4, date)

	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "Daily Market News Summary - Monday, June 2, 2025", msg.Subject)
	assert.Contains(t, msg.HTML, "Monday, June 2, 2025")
	assert.Contains(t, msg.HTML, "<p>Markets rallied.</p>")
	assert.NotContains(t, msg.HTML, "{{date}}")
	assert.NotContains(t, msg.HTML, "{{newsContent}}")
	assert.Contains(t, msg.Text, "4 articles")
}
