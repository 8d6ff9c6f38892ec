package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/purplefish/interviewchat/internal/models"
)

// TranscriptStream is the redis stream consumed by the transcript workers.
const TranscriptStream = "transcript:stream"

// StatusChannel is the pub/sub channel carrying a conversation's status events.
func StatusChannel(conversationID string) string {
	return "conversation:" + conversationID + ":status"
}

type StatusEvent struct {
	Type           string        `json:"type"` // always "status"
	ConversationID string        `json:"conversationId"`
	Status         models.Status `json:"status"`
	EndReason      string        `json:"endInterviewReason,omitempty"`
	Turn           int           `json:"turn,omitempty"`
	At             time.Time     `json:"at"`
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

type ExportQueue interface {
	EnqueueExport(ctx context.Context, conversationID string) error
}

// RedisEvents publishes status events on redis pub/sub and queues
// transcript exports on TranscriptStream.
type RedisEvents struct {
	rdb *redis.Client
}

func NewRedisEvents(rdb *redis.Client) *RedisEvents {
	return &RedisEvents{rdb: rdb}
}

func (r *RedisEvents) PublishStatus(ctx context.Context, ev StatusEvent) error {
	ev.Type = "status"
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, StatusChannel(ev.ConversationID), b).Err()
}

func (r *RedisEvents) EnqueueExport(ctx context.Context, conversationID string) error {
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: TranscriptStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"conversation_id": conversationID,
			"ts_unix":         strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

// NoopEvents drops everything. It stands in when redis is not configured.
type NoopEvents struct{}

func (NoopEvents) PublishStatus(context.Context, StatusEvent) error { return nil }
func (NoopEvents) EnqueueExport(context.Context, string) error      { return nil }
