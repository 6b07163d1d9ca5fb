// Package llm generates digest summaries and welcome intros via an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sashabaranov/go-openai"

	"github.com/allstar/stockwatch/pkg/config"
	"github.com/allstar/stockwatch/pkg/domain"
)

// NoNewsHTML is returned when a user has no articles, no API call is made
const NoNewsHTML = `<p class="digest-empty">No market news for today. The markets are quiet - check back tomorrow.</p>`

// fallbackHTML is substituted when the AI call fails for any reason; the
// digest email must still go out
const fallbackHTML = `<p class="digest-fallback">Today's market news highlights are available - open your watchlist for the latest updates.</p>`

// fallbackWelcome greets new users when intro generation fails
const fallbackWelcome = "Welcome aboard! We're thrilled to have you - your personalized market insights start today."

const summarySystemPrompt = `You are a financial newsletter editor. Given a numbered list of market news articles, write a short HTML digest for an email body.

Rules:
- Open with one <p> paragraph (2-3 sentences) capturing the overall market mood
- Follow with a <ul> of one <li> per article: bold headline, one-sentence takeaway, source in parentheses
- Neutral tone, no hype, no advice
- Keep company names, numbers and percentages exactly as given
- Output raw HTML only, no markdown, no <html> or <body> wrapper`

const welcomeSystemPrompt = `You are writing the intro paragraph of a welcome email for a stock watchlist app. Given the user profile, write 2-3 warm, personal sentences referencing their goals. Plain text only, no greetings like "Dear" (the template adds them), no sign-off.`

// errNonRetryable marks upstream failures that must not be retried
var errNonRetryable = errors.New("non-retryable llm error")

// Summarizer produces HTML digest content from articles
type Summarizer struct {
	client *openai.Client
	config config.LLMConfig
	policy *bluemonday.Policy
}

// NewSummarizer creates a summarizer from LLM configuration
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	return &Summarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		policy: bluemonday.UGCPolicy(),
	}
}

// Summarize converts a batch of articles into a short HTML blurb. It never
// returns an error: rate-limited calls are retried with backoff, anything
// else degrades to static fallback markup.
func (s *Summarizer) Summarize(ctx context.Context, articles []domain.Article) string {
	if len(articles) == 0 {
		return NoNewsHTML
	}

	prompt := buildDigestPrompt(articles)

	content, err := s.complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		lgr.Printf("[WARN] digest summary generation failed, using fallback: %v", err)
		return fallbackHTML
	}
	if content == "" {
		return fallbackHTML
	}

	return s.policy.Sanitize(content)
}

// WelcomeIntro generates a personalized welcome paragraph from a profile
// description, falling back to a generic greeting on any failure
func (s *Summarizer) WelcomeIntro(ctx context.Context, profile string) string {
	content, err := s.complete(ctx, welcomeSystemPrompt, profile)
	if err != nil {
		lgr.Printf("[WARN] welcome intro generation failed, using fallback: %v", err)
		return fallbackWelcome
	}
	if content == "" {
		return fallbackWelcome
	}
	return s.policy.Sanitize(content)
}

// complete runs one chat completion, retrying only on upstream rate limiting.
// Backoff doubles from the configured initial delay.
func (s *Summarizer) complete(ctx context.Context, system, user string) (string, error) {
	var content string

	retrier := repeater.NewBackoff(s.config.MaxRetries+1, s.config.RetryDelay)

	err := retrier.Do(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()

		resp, err := s.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: float32(s.config.Temperature),
			MaxTokens:   s.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			if isRateLimited(err) {
				return err // repeater will retry this
			}
			return fmt.Errorf("%w: %v", errNonRetryable, err)
		}

		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: no choices in response", errNonRetryable)
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, errNonRetryable)
	if err != nil {
		return "", err
	}
	return content, nil
}

// isRateLimited reports whether the error is an HTTP 429 from the API
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// buildDigestPrompt renders articles as a numbered plain-text list
func buildDigestPrompt(articles []domain.Article) string {
	var sb strings.Builder
	sb.WriteString("Summarize these market news articles:\n\n")
	for i, a := range articles {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, a.Headline, a.Source))
		if a.Summary != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", a.Summary))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
