package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fireLog struct {
	mu    sync.Mutex
	count map[string]int
}

func (f *fireLog) fire(_ context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count[gameID]++
	return nil
}

func (f *fireLog) get(gameID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count[gameID]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSchedulerFiresUntilStopped(t *testing.T) {
	log := &fireLog{count: make(map[string]int)}
	s := NewScheduler(10*time.Millisecond, log.fire)
	defer s.StopAll()

	s.Start("g1")
	s.Start("g1")
	waitFor(t, func() bool { return log.get("g1") >= 3 })

	s.Stop("g1")
	if s.Running("g1") {
		t.Error("g1 should be stopped")
	}
	n := log.get("g1")
	time.Sleep(50 * time.Millisecond)
	if got := log.get("g1"); got > n+1 {
		t.Errorf("timer kept firing after stop: %d -> %d", n, got)
	}
}

func TestSchedulerIndependentGames(t *testing.T) {
	log := &fireLog{count: make(map[string]int)}
	s := NewScheduler(10*time.Millisecond, log.fire)
	defer s.StopAll()

	s.Start("g1")
	s.Start("g2")
	s.Stop("g1")
	waitFor(t, func() bool { return log.get("g2") >= 2 })
	if !s.Running("g2") {
		t.Error("g2 should still run")
	}
}

func TestSchedulerStopAllWaits(t *testing.T) {
	block := make(chan struct{})
	var entered sync.Once
	started := make(chan struct{})
	s := NewScheduler(5*time.Millisecond, func(ctx context.Context, _ string) error {
		entered.Do(func() { close(started) })
		select {
		case <-block:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	s.Start("g1")
	<-started
	s.StopAll()

	if s.Running("g1") {
		t.Error("no timer should remain")
	}
}

func TestSchedulerExitsOnFireError(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	s := NewScheduler(5*time.Millisecond, func(context.Context, string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("dispatcher gone")
	})
	defer s.StopAll()

	s.Start("g1")
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected a single failed fire, got %d", calls)
	}
}

func TestSchedulerBindCancelsTimers(t *testing.T) {
	log := &fireLog{count: make(map[string]int)}
	s := NewScheduler(5*time.Millisecond, log.fire)
	ctx, cancel := context.WithCancel(context.Background())
	s.Bind(ctx)

	s.Start("g1")
	waitFor(t, func() bool { return log.get("g1") >= 1 })
	cancel()

	done := make(chan struct{})
	go func() {
		s.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopAll did not return after cancel")
	}
}
