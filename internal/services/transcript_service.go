package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/purplefish/interviewchat/internal/models"
	pgrepo "github.com/purplefish/interviewchat/internal/repositories/postgres"
	"github.com/purplefish/interviewchat/internal/storage"
	"github.com/purplefish/interviewchat/internal/utils"
)

type Transcript struct {
	ConversationID string           `json:"conversationId"`
	Status         models.Status    `json:"status"`
	EndReason      string           `json:"endInterviewReason,omitempty"`
	Metadata       models.Metadata  `json:"metadata"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	Messages       []models.Message `json:"messages"`
	ExportedAt     time.Time        `json:"exportedAt"`
}

type TranscriptService interface {
	// Export uploads the full transcript of a finished interview and
	// returns where it was stored.
	Export(ctx context.Context, conversationID string) (string, error)
}

type transcriptService struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepo
	uploader storage.Uploader
}

func NewTranscriptService(convos pgrepo.ConversationRepo, messages pgrepo.MessageRepo, uploader storage.Uploader) TranscriptService {
	return &transcriptService{convos: convos, messages: messages, uploader: uploader}
}

func (s *transcriptService) Export(ctx context.Context, conversationID string) (string, error) {
	const op = "TranscriptService.Export"

	c, err := s.convos.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return "", utils.E(utils.CodeInternal, op, "failed to get conversation", err)
	}
	if !c.Status.Terminal() {
		return "", utils.E(utils.CodeConflict, op, "interview is still in progress", nil)
	}

	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}

	b, err := json.Marshal(Transcript{
		ConversationID: c.ID,
		Status:         c.Status,
		EndReason:      c.EndReason,
		Metadata:       c.Meta(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Messages:       msgs,
		ExportedAt:     time.Now().UTC(),
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to encode transcript", err)
	}

	path, err := s.uploader.Upload(ctx, storage.TranscriptObject(c.ID), storage.TranscriptContentType, bytes.NewReader(b))
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to upload transcript", err)
	}
	return path, nil
}
