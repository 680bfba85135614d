package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

func init() {
	logger.Init()
}

type countingRefresher struct {
	drafts  atomic.Int32
	leagues atomic.Int32
}

func (c *countingRefresher) RefreshDrafts(ctx context.Context)  { c.drafts.Add(1) }
func (c *countingRefresher) RefreshLeagues(ctx context.Context) { c.leagues.Add(1) }

func TestPollerRunsJobs(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller() failed: %v", err)
	}
	r := &countingRefresher{}
	if err := p.Watch(r, 20*time.Millisecond, 30*time.Millisecond); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for (r.drafts.Load() < 2 || r.leagues.Load() < 2) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if r.drafts.Load() < 2 || r.leagues.Load() < 2 {
		t.Errorf("expected repeated polls, got drafts=%d leagues=%d", r.drafts.Load(), r.leagues.Load())
	}
}

func TestEveryRejectsBadInterval(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller() failed: %v", err)
	}
	defer p.Stop()

	if err := p.Every("bad", 0, func(context.Context) {}); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestJobContextEnds(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller() failed: %v", err)
	}
	started := make(chan struct{}, 1)
	cancelled := make(chan struct{}, 1)
	err = p.Every("slow", 10*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case cancelled <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Every() failed: %v", err)
	}
	p.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	p.Stop()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context never ended")
	}
}
