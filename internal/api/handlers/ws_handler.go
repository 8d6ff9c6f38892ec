package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/utils"
)

type WSHandler struct {
	chat     services.ChatService
	convs    services.ConversationService
	redis    *redis.Client // optional, carries status events
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService, convs services.ConversationService, rdb *redis.Client, trustedOrigins []string, log *logrus.Logger) *WSHandler {
	allowed := map[string]bool{}
	for _, o := range trustedOrigins {
		allowed[o] = true
	}
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		chat:  chat,
		convs: convs,
		redis: rdb,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

type wsClientMsg struct {
	Type    string `json:"type"` // answer|ping
	Message string `json:"message"`
}

type wsTurnMsg struct {
	Type string `json:"type"`
	*services.ChatResult
}

type wsErrorMsg struct {
	Type string `json:"type"`
	APIError
	FallbackMessage string           `json:"fallbackMessage,omitempty"`
	ConversationID  string           `json:"conversationId,omitempty"`
	Messages        []models.Message `json:"messages,omitempty"`
	Status          models.Status    `json:"status,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeError(err error) error {
	msg := wsErrorMsg{
		Type:     "error",
		APIError: APIError{Code: utils.CodeOf(err), Message: utils.SafeMessage(err)},
	}
	var te *services.TurnError
	if errors.As(err, &te) {
		// same body as the HTTP turn error: the answer was saved
		msg.FallbackMessage = services.FallbackMessage
		msg.ConversationID = te.ConversationID
		msg.Messages = []models.Message{te.UserMessage}
		msg.Status = te.Status
	}
	return w.writeJSON(msg)
}

// ConversationWS runs a live interview: answer frames go through the same
// pipeline as POST /chat, and status events of the conversation are pushed.
func (h *WSHandler) ConversationWS(c *gin.Context) {
	id := c.Param("id")

	// refuse the upgrade for unknown conversations
	if _, err := h.convs.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var events <-chan *redis.Message
	if h.redis != nil {
		pubsub := h.redis.Subscribe(ctx, services.StatusChannel(id))
		defer pubsub.Close()
		events = pubsub.Channel()
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler", "invalid json", err))
				continue
			}

			switch msg.Type {
			case "answer":
				res, err := h.chat.Submit(ctx, id, msg.Message)
				if err != nil {
					h.log.WithError(err).WithField("conversation_id", id).Warn("ws answer failed")
					_ = wc.writeError(err)
					continue
				}
				_ = wc.writeJSON(wsTurnMsg{Type: "turn", ChatResult: res})

			case "ping":
				_ = wc.writeText([]byte(`{"type":"pong"}`))

			default:
				_ = wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler", "unknown message type", nil))
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// status events are already JSON
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
