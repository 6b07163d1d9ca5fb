// Package digest orchestrates the daily per-user news email run: resolve
// watchlist symbols, aggregate news, summarize, send. Each user's pipeline is
// isolated - one user's failure never aborts the batch.
package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/allstar/stockwatch/pkg/domain"
	"github.com/allstar/stockwatch/pkg/notify"
)

// UserLister provides the digest audience
type UserLister interface {
	ListForDigest(ctx context.Context) ([]domain.User, error)
}

// SymbolResolver maps a user email to watchlist symbols
type SymbolResolver interface {
	SymbolsByEmail(ctx context.Context, email string) ([]string, error)
}

// NewsProvider aggregates articles for a symbol set
type NewsProvider interface {
	GetNews(ctx context.Context, symbols []string) ([]domain.Article, error)
}

// Summarizer turns articles into digest HTML; it never fails, only degrades
type Summarizer interface {
	Summarize(ctx context.Context, articles []domain.Article) string
	WelcomeIntro(ctx context.Context, profile string) string
}

// Sender delivers rendered email
type Sender interface {
	Send(msg notify.Message) error
}

// SentLog tracks per-(user, day) deliveries so re-runs skip users already
// served
type SentLog interface {
	MarkSent(ctx context.Context, userID string, at time.Time) error
	WasSent(ctx context.Context, userID string, at time.Time) (bool, error)
}

// Dispatcher runs the digest batch
type Dispatcher struct {
	users      UserLister
	resolver   SymbolResolver
	news       NewsProvider
	summarizer Summarizer
	sender     Sender
	sentLog    SentLog
	maxWorkers int
	nowFn      func() time.Time
}

// NewDispatcher creates a dispatcher with the given collaborators
func NewDispatcher(users UserLister, resolver SymbolResolver, news NewsProvider,
	summarizer Summarizer, sender Sender, sentLog SentLog, maxWorkers int) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	return &Dispatcher{
		users:      users,
		resolver:   resolver,
		news:       news,
		summarizer: summarizer,
		sender:     sender,
		sentLog:    sentLog,
		maxWorkers: maxWorkers,
		nowFn:      time.Now,
	}
}

// Run executes one digest batch and reports per-user outcomes. The run as a
// whole succeeds even when individual users fail; it fails only when the
// audience cannot be listed at all.
func (d *Dispatcher) Run(ctx context.Context) *domain.DigestReport {
	started := d.nowFn()

	users, err := d.users.ListForDigest(ctx)
	if err != nil {
		lgr.Printf("[ERROR] digest run aborted, can't list users: %v", err)
		return &domain.DigestReport{Success: false, Message: fmt.Sprintf("failed to list users: %v", err)}
	}

	if len(users) == 0 {
		return &domain.DigestReport{Success: true, Message: "no users to send digest to"}
	}

	lgr.Printf("[INFO] digest run started for %d users", len(users))

	outcomes := make([]domain.DigestOutcome, len(users))
	skipped := 0
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxWorkers)

	for i, user := range users {
		g.Go(func() error {
			outcome, wasSkipped := d.processUser(gctx, user, started)
			mu.Lock()
			outcomes[i] = outcome
			if wasSkipped {
				skipped++
			}
			mu.Unlock()
			return nil // per-user failures are recorded, never propagated
		})
	}
	_ = g.Wait() // workers never return errors

	report := &domain.DigestReport{Success: true, Outcomes: outcomes}
	sent := report.SentCount()
	failed := len(users) - sent - skipped
	report.Message = fmt.Sprintf("digest completed: %d sent, %d failed, %d skipped of %d users",
		sent, failed, skipped, len(users))

	lgr.Printf("[INFO] %s in %v", report.Message, time.Since(started).Round(time.Millisecond))
	return report
}

// processUser runs one user's resolve -> aggregate -> summarize -> send
// sequence. Stage order is strict; every failure is downgraded to an outcome.
func (d *Dispatcher) processUser(ctx context.Context, user domain.User, runDate time.Time) (outcome domain.DigestOutcome, skipped bool) {
	outcome = domain.DigestOutcome{Email: user.Email}

	// skip users already served today, re-runs after a crash stay quiet
	if sent, err := d.sentLog.WasSent(ctx, user.ID, runDate); err != nil {
		lgr.Printf("[WARN] sent-log check failed for %s, proceeding anyway: %v", user.Email, err)
	} else if sent {
		lgr.Printf("[DEBUG] digest already sent to %s today, skipping", user.Email)
		outcome.Skipped = true
		return outcome, true
	}

	symbols, err := d.resolver.SymbolsByEmail(ctx, user.Email)
	if err != nil {
		lgr.Printf("[WARN] symbol resolution failed for %s: %v", user.Email, err)
		symbols = nil // fall back to general market news
	}

	articles, err := d.news.GetNews(ctx, symbols)
	if err != nil {
		// fetch failures downgrade to an empty set, the summarizer
		// renders its no-news markup and the email still goes out
		lgr.Printf("[WARN] news fetch failed for %s: %v", user.Email, err)
		articles = nil
	}

	bundle := domain.UserNewsBundle{Email: user.Email, Name: user.Name, Articles: articles}
	content := d.summarizer.Summarize(ctx, bundle.Articles)

	msg := notify.RenderNewsSummary(bundle.Name, bundle.Email, content, len(bundle.Articles), runDate)
	if err := d.sender.Send(msg); err != nil {
		lgr.Printf("[ERROR] digest delivery failed for %s: %v", user.Email, err)
		outcome.Error = err.Error()
		return outcome, false
	}

	if err := d.sentLog.MarkSent(ctx, user.ID, runDate); err != nil {
		// delivery already happened, a failed mark only risks one
		// duplicate on re-run
		lgr.Printf("[WARN] failed to record digest delivery for %s: %v", user.Email, err)
	}

	outcome.Sent = true
	return outcome, false
}

// SendWelcome generates a personalized intro from the profile text and sends
// the welcome email, used by the user-created hook
func (d *Dispatcher) SendWelcome(ctx context.Context, user domain.User, profile string) error {
	intro := d.summarizer.WelcomeIntro(ctx, profile)
	msg := notify.RenderWelcome(user.Name, user.Email, intro)
	if err := d.sender.Send(msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}
