// Package scheduler runs the polling fallback that keeps cached views fresh
// when change notifications are missed.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// Refresher is polled on a fixed interval.
type Refresher interface {
	RefreshDrafts(ctx context.Context)
	RefreshLeagues(ctx context.Context)
}

type Poller struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPoller() (*Poller, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{s: s, ctx: ctx, cancel: cancel}, nil
}

// Every runs fn every interval. A run still in progress when the next one
// is due causes that one to be skipped.
func (p *Poller) Every(name string, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}
	_, err := p.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(p.ctx, interval*4)
			defer cancel()
			fn(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return nil
}

// Watch registers the draft and league polls on r.
func (p *Poller) Watch(r Refresher, draftEvery, leagueEvery time.Duration) error {
	if err := p.Every("draft-poll", draftEvery, r.RefreshDrafts); err != nil {
		return err
	}
	return p.Every("league-poll", leagueEvery, r.RefreshLeagues)
}

func (p *Poller) Start() {
	logger.Info("Polling started", "jobs", len(p.s.Jobs()))
	p.s.Start()
}

func (p *Poller) Stop() error {
	p.cancel()
	return p.s.Shutdown()
}
