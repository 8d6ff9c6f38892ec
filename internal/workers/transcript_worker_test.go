package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/utils"
)

type fakeTranscripts struct {
	err   error
	calls []string
}

func (f *fakeTranscripts) Export(_ context.Context, id string) (string, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return "", f.err
	}
	return "gs://bucket/transcripts/" + id + ".json", nil
}

func newTestPool(tr services.TranscriptService) (*TranscriptWorkerPool, *test.Hook) {
	log, hook := test.NewNullLogger()
	p := &TranscriptWorkerPool{Transcripts: tr, Logger: log}
	p.defaults()
	return p, hook
}

func TestHandleMsgExports(t *testing.T) {
	tr := &fakeTranscripts{}
	p, hook := newTestPool(tr)

	done := p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"conversation_id": "abc"}})
	assert.True(t, done)
	assert.Equal(t, []string{"abc"}, tr.calls)
	if assert.NotNil(t, hook.LastEntry()) {
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		assert.Equal(t, "gs://bucket/transcripts/abc.json", hook.LastEntry().Data["path"])
	}
}

func TestHandleMsgOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gone", utils.E(utils.CodeNotFound, "op", "conversation not found", nil), true},
		{"still running", utils.E(utils.CodeConflict, "op", "in progress", nil), true},
		{"upload down", utils.E(utils.CodeUnavailable, "op", "upload failed", errors.New("503")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPool(&fakeTranscripts{err: tt.err})
			got := p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"conversation_id": "abc"}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleMsgWithoutID(t *testing.T) {
	tr := &fakeTranscripts{}
	p, _ := newTestPool(tr)
	assert.True(t, p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{}}))
	assert.Empty(t, tr.calls)
}

func TestStartRequiresDependencies(t *testing.T) {
	p := &TranscriptWorkerPool{}
	assert.Error(t, p.Start(context.Background()))
}
