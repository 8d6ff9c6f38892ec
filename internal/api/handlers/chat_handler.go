package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/purplefish/interviewchat/internal/providers/stt"
	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/utils"
)

type ChatHandler struct {
	chat  services.ChatService
	voice services.VoiceService
}

// NewChatHandler accepts a nil voice service when speech recognition is off.
func NewChatHandler(chat services.ChatService, voice services.VoiceService) *ChatHandler {
	return &ChatHandler{chat: chat, voice: voice}
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	IsInitial      bool   `json:"isInitial"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	const op = "ChatHandler.Chat"

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	var (
		res *services.ChatResult
		err error
	)
	if req.IsInitial {
		res, err = h.chat.Start(c.Request.Context())
	} else {
		res, err = h.chat.Submit(c.Request.Context(), req.ConversationID, req.Message)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Voice takes a multipart form with conversationId, audio and an optional
// language.
func (h *ChatHandler) Voice(c *gin.Context) {
	const op = "ChatHandler.Voice"

	if h.voice == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "voice answers are not enabled", nil))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, stt.MaxAudioBytes+1<<20)

	fh, err := c.FormFile("audio")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio is too large", err))
			return
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}
	if fh.Size > stt.MaxAudioBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio is too large", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio file", err))
		return
	}
	defer f.Close()

	audio, err := io.ReadAll(io.LimitReader(f, stt.MaxAudioBytes+1))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable audio file", err))
		return
	}

	res, err := h.voice.Answer(c.Request.Context(), c.PostForm("conversationId"), audio, c.PostForm("language"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
