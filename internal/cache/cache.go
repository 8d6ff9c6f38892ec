package cache

import (
	"context"
	"strconv"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Version reads a counter; a missing counter reads as 0.
	Version(ctx context.Context, key string) (int64, error)
	// Bump increments a counter and returns its new value.
	Bump(ctx context.Context, key string) (int64, error)
}

const (
	KeyConversationList        = "conversations:list"
	KeyConversationListVersion = "conversations:list:version"
	ConversationListTTL        = 30 * time.Second
)

// ConversationListKey names the list cached for one generation of
// KeyConversationListVersion. Bumping the version orphans older entries.
func ConversationListKey(version int64) string {
	return KeyConversationList + ":" + strconv.FormatInt(version, 10)
}

// Noop always misses. It stands in when redis is not configured.
type Noop struct{}

func (Noop) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (Noop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Del(context.Context, ...string) error                      { return nil }
func (Noop) Version(context.Context, string) (int64, error)            { return 0, nil }
func (Noop) Bump(context.Context, string) (int64, error)               { return 0, nil }
