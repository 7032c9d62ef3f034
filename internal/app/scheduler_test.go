package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	ran   chan struct{}
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{ran: make(chan struct{}, 16)}
}

func (f *fakeCompleter) CompleteElapsed(_ context.Context, now time.Time) ([]model.Session, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	if f.err != nil {
		return nil, f.err
	}
	return []model.Session{{ID: "s1", Status: model.SessionStatusCompleted}}, nil
}

func (f *fakeCompleter) Calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func waitRun(t *testing.T, f *fakeCompleter) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("completion task did not run")
	}
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	completer := newFakeCompleter()
	s := NewScheduler(completer, 10*time.Millisecond, zap.NewNop())
	fixed := time.Date(2025, 10, 20, 11, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Start(context.Background())
	waitRun(t, completer)
	waitRun(t, completer)
	s.Stop()

	calls := completer.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, fixed, calls[0])
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	completer := newFakeCompleter()
	completer.err = errors.New("store unavailable")
	s := NewScheduler(completer, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitRun(t, completer)
	cancel()

	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Len(t, completer.Calls(), 1)
}
