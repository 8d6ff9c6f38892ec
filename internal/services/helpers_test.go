package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/purplefish/interviewchat/config"
	"github.com/purplefish/interviewchat/internal/cache"
	"github.com/purplefish/interviewchat/internal/lock"
	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/providers/llm"
	pgrepo "github.com/purplefish/interviewchat/internal/repositories/postgres"
)

type fakeLLM struct {
	mu       sync.Mutex
	replies  []*llm.Reply
	errs     []error
	requests []llm.Request
	onCall   func(ctx context.Context)
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	f.mu.Lock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(ctx)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return &llm.Reply{Text: "Tell me more."}, nil
}

func (f *fakeLLM) Close() error { return nil }

type fakeEvents struct {
	mu       sync.Mutex
	statuses []StatusEvent
	exports  []string
}

func (f *fakeEvents) PublishStatus(_ context.Context, ev StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, ev)
	return nil
}

func (f *fakeEvents) EnqueueExport(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, id)
	return nil
}

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[name] = buf.Bytes()
	return "gs://test/" + name, nil
}

func (f *fakeUploader) Close() error { return nil }

// mapCache is an in-process cache.Cache that counts lookups. beforeSet runs
// outside the lock ahead of every write.
type mapCache struct {
	mu        sync.Mutex
	data      map[string]any
	versions  map[string]int64
	hits      int
	beforeSet func()
}

func (c *mapCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	if p, ok := dst.(*[]ConversationSummary); ok {
		*p = v.([]ConversationSummary)
	}
	return true, nil
}

func (c *mapCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string]any{}
	}
	c.data[key] = val
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mapCache) Version(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key], nil
}

func (c *mapCache) Bump(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions == nil {
		c.versions = map[string]int64{}
	}
	c.versions[key]++
	return c.versions[key], nil
}

func (c *mapCache) listKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cache.ConversationListKey(c.versions[cache.KeyConversationListVersion])
}

type testEnv struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepo
	llm      *fakeLLM
	events   *fakeEvents
	locker   *lock.Memory
	cache    *mapCache
	log      *logrus.Logger
	hook     *test.Hook
	chat     ChatService
	convs    ConversationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := config.OpenDatabase(config.DBConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, pgrepo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	e := &testEnv{
		convos:   pgrepo.NewConversationRepo(db),
		messages: pgrepo.NewMessageRepo(db),
		llm:      &fakeLLM{},
		events:   &fakeEvents{},
		locker:   lock.NewMemory(),
		cache:    &mapCache{},
		log:      log,
		hook:     hook,
	}

	// strictly increasing clock so ordering never depends on timer resolution
	var mu sync.Mutex
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}

	e.chat = NewChatService(ChatDeps{
		Conversations: e.convos,
		Messages:      e.messages,
		LLM:           e.llm,
		Locker:        e.locker,
		Cache:         e.cache,
		Events:        e.events,
		Exports:       e.events,
		Log:           log,
		Timeout:       time.Second,
		Now:           clock,
	})
	e.convs = NewConversationService(ConversationDeps{
		Conversations: e.convos,
		Messages:      e.messages,
		Locker:        e.locker,
		Cache:         e.cache,
		Events:        e.events,
		Exports:       e.events,
		Log:           log,
	})
	return e
}

func (e *testEnv) messageCount(t *testing.T, id string) int {
	t.Helper()
	msgs, err := e.messages.ListByConversation(context.Background(), id)
	require.NoError(t, err)
	return len(msgs)
}

func (e *testEnv) status(t *testing.T, id string) models.Status {
	t.Helper()
	c, err := e.convos.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.Status
}
