package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"n8n-monitor/internal/domain/summary"
	"n8n-monitor/internal/pipeline"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type memStore struct {
	mu        sync.Mutex
	values    map[string]any
	published []any
	setErr    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]any{}}
}

func (s *memStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *memStore) PublishJSON(_ context.Context, _ string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, value)
	return nil
}

func (s *memStore) SetIfNotExists(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

func (s *memStore) DeleteIfEquals(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[key] == value {
		delete(s.values, key)
	}
	return nil
}

func TestSnapshotMirror_WritesBothDocumentsAndAnnounces(t *testing.T) {
	store := newMemStore()
	m := NewSnapshotMirror(store, quietLogger())

	snap := pipeline.Snapshot{
		CycleID: "c1",
		Result: summary.Result{
			Workflows:  summary.WorkflowsSummary{Total: 3},
			Executions: summary.ExecutionsSummary{Total: 7},
		},
	}
	m.SummaryPublished(context.Background(), snap)

	require.Equal(t, snap.Result.Workflows, store.values[KeyWorkflows])
	require.Equal(t, snap.Result.Executions, store.values[KeyExecutions])
	require.Len(t, store.published, 1)
	require.Equal(t, eventSummaryReady, store.published[0].(mirrorEvent).Type)
}

func TestSnapshotMirror_StopsOnWriteError(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("readonly replica")
	m := NewSnapshotMirror(store, quietLogger())

	m.SummaryPublished(context.Background(), pipeline.Snapshot{CycleID: "c1"})
	require.Empty(t, store.published)
}

func TestSnapshotMirror_RecordsFailure(t *testing.T) {
	store := newMemStore()
	m := NewSnapshotMirror(store, quietLogger())

	m.PollFailed(context.Background(), pipeline.PollFailure{CycleID: "c2", Error: "boom"})
	ev, ok := store.values[KeyLastFailure].(mirrorEvent)
	require.True(t, ok)
	require.Equal(t, "boom", ev.Error)
	require.Len(t, store.published, 1)
}

func TestPollLock_ExclusiveAndTokenScoped(t *testing.T) {
	store := newMemStore()
	a := NewPollLock(store)
	b := NewPollLock(store)
	ctx := context.Background()

	ok, err := a.AcquirePollLock(ctx, "token-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.AcquirePollLock(ctx, "token-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.ReleasePollLock(ctx, "token-b"))
	ok, _ = b.AcquirePollLock(ctx, "token-b", time.Minute)
	require.False(t, ok, "a foreign token must not release the lock")

	require.NoError(t, a.ReleasePollLock(ctx, "token-a"))
	ok, _ = b.AcquirePollLock(ctx, "token-b", time.Minute)
	require.True(t, ok)
}

func TestRedis_UnconfiguredIsBypassed(t *testing.T) {
	r := NewRedis(Options{}, quietLogger())
	ctx := context.Background()

	require.False(t, r.Available())
	require.NoError(t, r.SetJSON(ctx, "k", map[string]int{"a": 1}, 0))
	require.NoError(t, r.PublishJSON(ctx, "ch", "x"))
	require.NoError(t, r.DeleteIfEquals(ctx, "k", "v"))
	require.NoError(t, r.Close())

	_, err := r.SetIfNotExists(ctx, "k", "v", time.Second)
	require.Error(t, err, "lock acquisition reports unavailability so the caller can bypass it")
}

func TestRedis_UnreachableIsBypassed(t *testing.T) {
	r := NewRedis(Options{Addr: "127.0.0.1:1"}, quietLogger())
	require.False(t, r.Available())
	require.NoError(t, r.SetJSON(context.Background(), "k", 1, 0))
}

func TestRedis_NilSafe(t *testing.T) {
	var r *Redis
	require.False(t, r.Available())
	require.NoError(t, r.SetJSON(context.Background(), "k", 1, 0))
}
