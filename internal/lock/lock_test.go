package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTryLock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	unlock, err := m.TryLock(ctx, "c1", time.Minute)
	require.NoError(t, err)

	_, err = m.TryLock(ctx, "c1", time.Minute)
	assert.ErrorIs(t, err, ErrBusy)

	other, err := m.TryLock(ctx, "c2", time.Minute)
	require.NoError(t, err)
	other()

	unlock()
	unlock() // second call is a no-op

	again, err := m.TryLock(ctx, "c1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := m.TryLock(ctx, "c1", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := m.TryLock(ctx, "c1", time.Second)
	require.NoError(t, err)

	// the expired holder must not release the new one
	stale()
	_, err = m.TryLock(ctx, "c1", time.Second)
	assert.ErrorIs(t, err, ErrBusy)
	fresh()
}

func TestMemoryExclusive(t *testing.T) {
	m := NewMemory()
	var acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.TryLock(context.Background(), "same", time.Minute); err == nil {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), acquired)
}
