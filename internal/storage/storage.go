package storage

import (
	"context"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Close() error
}

// TranscriptContentType is stored with every exported transcript.
const TranscriptContentType = "application/json"

// TranscriptObject is the object name of a conversation's exported transcript.
func TranscriptObject(conversationID string) string {
	return "transcripts/" + conversationID + ".json"
}
