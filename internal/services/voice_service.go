package services

import (
	"context"
	"strings"
	"time"

	"github.com/purplefish/interviewchat/internal/providers/stt"
	"github.com/purplefish/interviewchat/internal/utils"
)

type VoiceResult struct {
	*ChatResult
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// VoiceService answers with a recording instead of text.
type VoiceService interface {
	Answer(ctx context.Context, conversationID string, audio []byte, language string) (*VoiceResult, error)
}

type voiceService struct {
	stt     stt.Provider
	chat    ChatService
	timeout time.Duration
}

func NewVoiceService(p stt.Provider, chat ChatService) VoiceService {
	return &voiceService{stt: p, chat: chat, timeout: 20 * time.Second}
}

func (s *voiceService) Answer(ctx context.Context, conversationID string, audio []byte, language string) (*VoiceResult, error) {
	const op = "VoiceService.Answer"

	if len(audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	if len(audio) > stt.MaxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is too large", nil)
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	text, conf, err := s.stt.Transcribe(tctx, audio, language)
	cancel()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "could not understand the recording, please try again", nil)
	}

	res, err := s.chat.Submit(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}
	return &VoiceResult{ChatResult: res, Transcript: text, Confidence: conf}, nil
}
