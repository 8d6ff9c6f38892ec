package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/providers/llm"
	"github.com/purplefish/interviewchat/internal/storage"
	"github.com/purplefish/interviewchat/internal/utils"
)

func TestTranscriptExport(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	up := &fakeUploader{}
	svc := NewTranscriptService(e.convos, e.messages, up)

	start, err := e.chat.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Export(ctx, start.ConversationID)
	assert.True(t, utils.IsCode(err, utils.CodeConflict), "in-progress interviews are not exported")

	e.llm.replies = []*llm.Reply{{Text: "Thanks again for your time"}}
	_, err = e.chat.Submit(ctx, start.ConversationID, "No")
	require.NoError(t, err)

	path, err := svc.Export(ctx, start.ConversationID)
	require.NoError(t, err)
	name := storage.TranscriptObject(start.ConversationID)
	assert.Equal(t, "gs://test/"+name, path)

	var tr Transcript
	require.NoError(t, json.Unmarshal(up.objects[name], &tr))
	assert.Equal(t, models.StatusCompleted, tr.Status)
	assert.Equal(t, interview.ReasonCompleted, tr.EndReason)
	assert.Len(t, tr.Messages, 3)
}

func TestTranscriptExportFailures(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	up := &fakeUploader{err: errors.New("bucket gone")}
	svc := NewTranscriptService(e.convos, e.messages, up)

	_, err := svc.Export(ctx, "6f1c1b8e-3c7e-4c53-9d0e-1d2f3a4b5c6d")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	start, err := e.chat.Start(ctx)
	require.NoError(t, err)
	_, err = e.convs.Terminate(ctx, start.ConversationID)
	require.NoError(t, err)

	_, err = svc.Export(ctx, start.ConversationID)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}
