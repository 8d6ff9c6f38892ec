package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// TurnErrorResponse is sent when the interviewer failed to answer. The
// answer itself was saved, so the client can keep it on screen.
type TurnErrorResponse struct {
	APIError
	FallbackMessage string           `json:"fallbackMessage"`
	ConversationID  string           `json:"conversationId"`
	Messages        []models.Message `json:"messages"`
	Status          models.Status    `json:"status"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	body := APIError{
		Code:    utils.CodeOf(err),
		Message: utils.SafeMessage(err),
	}

	var te *services.TurnError
	if errors.As(err, &te) {
		c.JSON(status, TurnErrorResponse{
			APIError:        body,
			FallbackMessage: services.FallbackMessage,
			ConversationID:  te.ConversationID,
			Messages:        []models.Message{te.UserMessage},
			Status:          te.Status,
		})
		return
	}

	if status == http.StatusInternalServerError {
		body.Code = utils.CodeInternal
	}
	c.JSON(status, body)
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	writeError(c, utils.E(utils.CodeMethodNotAllowed, "Router", "method not allowed", nil))
}

// NotFound answers unknown paths.
func NotFound(c *gin.Context) {
	writeError(c, utils.E(utils.CodeNotFound, "Router", "route not found", nil))
}
