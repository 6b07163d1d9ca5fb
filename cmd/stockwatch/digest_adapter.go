package main

import (
	"context"

	"github.com/allstar/stockwatch/pkg/digest"
	"github.com/allstar/stockwatch/pkg/domain"
	"github.com/allstar/stockwatch/pkg/scheduler"
)

// digestService combines the scheduler's manual trigger with the dispatcher's
// welcome delivery into the single contract the HTTP server expects
type digestService struct {
	scheduler  *scheduler.Scheduler
	dispatcher *digest.Dispatcher
}

func (d *digestService) DigestNow(ctx context.Context) *domain.DigestReport {
	return d.scheduler.DigestNow(ctx)
}

func (d *digestService) SendWelcome(ctx context.Context, user domain.User, profile string) error {
	return d.dispatcher.SendWelcome(ctx, user, profile)
}
