package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakePoller struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (f *fakePoller) Start() { f.started.Store(true) }
func (f *fakePoller) Stop()  { f.stopped.Store(true) }

type fakeWarmRefresher struct {
	calls atomic.Int32
}

func (f *fakeWarmRefresher) WarmRefresh(ctx context.Context) error {
	f.calls.Add(1)
	return nil
}

func TestStartStopDrainsWarmRefreshLoop(t *testing.T) {
	poller := &fakePoller{}
	refresher := &fakeWarmRefresher{}

	s := New(Config{
		Poller:              poller,
		WarmRefresher:       refresher,
		WarmRefreshInterval: 10 * time.Millisecond,
	})
	s.Start()
	if !poller.started.Load() {
		t.Fatal("expected poller to be started")
	}

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if !poller.stopped.Load() {
		t.Fatal("expected poller to be stopped")
	}
	if refresher.calls.Load() == 0 {
		t.Fatal("expected at least one warm refresh call before stop")
	}
}

func TestStopWithNoLoopsConfiguredReturnsImmediately(t *testing.T) {
	s := New(Config{})
	s.Start()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return for a scheduler with no configured loops")
	}
}
