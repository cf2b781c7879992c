package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSessionCleaner struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSessionCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

type fakeUserCleaner struct {
	calls  atomic.Int64
	cutoff atomic.Value
}

func (f *fakeUserCleaner) DeleteUnverifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls.Add(1)
	f.cutoff.Store(cutoff)
	return 1, nil
}

func TestSweeperRunsBothOnStartup(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessionCleaner{}
	users := &fakeUserCleaner{}

	s := &Sweeper{
		Sessions:        sessions,
		Users:           users,
		SessionInterval: time.Hour,
		AccountInterval: time.Hour,
		Retention:       24 * time.Hour,
		Now:             func() time.Time { return now },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.calls.Load() == 0 || users.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("startup sweeps did not run")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done

	cutoff, _ := users.cutoff.Load().(time.Time)
	if !cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected retention cutoff: %s", cutoff)
	}
}

func TestSweeperTicksUntilCancelled(t *testing.T) {
	sessions := &fakeSessionCleaner{}

	s := &Sweeper{
		Sessions:        sessions,
		SessionInterval: 5 * time.Millisecond,
		AccountInterval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated sweeps, got %d", sessions.calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}

func TestSweeperSurvivesErrors(t *testing.T) {
	sessions := &fakeSessionCleaner{err: errors.New("db down")}

	s := &Sweeper{
		Sessions:        sessions,
		SessionInterval: 5 * time.Millisecond,
		AccountInterval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeper stopped after an error")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done
}
