package cache

import (
	"context"
	"time"
)

type lockStore interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) error
}

// PollLock keeps replicas that watch the same server from polling it at once.
type PollLock struct {
	store lockStore
	key   string
}

func NewPollLock(store lockStore) *PollLock {
	return &PollLock{store: store, key: KeyPollLock}
}

func (l *PollLock) AcquirePollLock(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return l.store.SetIfNotExists(ctx, l.key, token, ttl)
}

func (l *PollLock) ReleasePollLock(ctx context.Context, token string) error {
	return l.store.DeleteIfEquals(ctx, l.key, token)
}
