// Package lock serialises turns of the same conversation.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy means another turn holds the conversation.
var ErrBusy = errors.New("conversation is busy")

type Unlock func()

type Locker interface {
	// TryLock acquires key for at most ttl. It returns ErrBusy without
	// waiting when the key is held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Memory is an in-process Locker for single-instance deployments.
type Memory struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: map[string]time.Time{}, now: time.Now}
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.held[key]; ok && now.Before(exp) {
		return nil, ErrBusy
	}
	exp := now.Add(ttl)
	m.held[key] = exp

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// a later holder may own the key after our ttl ran out
			if cur, ok := m.held[key]; ok && cur.Equal(exp) {
				delete(m.held, key)
			}
		})
	}, nil
}
