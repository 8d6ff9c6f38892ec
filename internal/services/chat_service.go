package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/purplefish/interviewchat/internal/cache"
	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/lock"
	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/providers/llm"
	pgrepo "github.com/purplefish/interviewchat/internal/repositories/postgres"
	"github.com/purplefish/interviewchat/internal/utils"
)

// FallbackMessage is shown in place of the interviewer's reply when the
// model could not answer.
const FallbackMessage = "Sorry, there was an error processing your message. Please try again."

const maxAnswerLen = 4000

type ChatResult struct {
	Messages       []models.Message `json:"messages"`
	ConversationID string           `json:"conversationId"`
	Status         models.Status    `json:"status"`
	EndReason      string           `json:"endInterviewReason,omitempty"`
}

// TurnError is returned by Submit when the model failed. The user message
// is saved and the status is unchanged.
type TurnError struct {
	Err            error
	ConversationID string
	UserMessage    models.Message
	Status         models.Status
}

func (e *TurnError) Error() string { return e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

type ChatService interface {
	// Start opens a new interview with the script's opening question.
	Start(ctx context.Context) (*ChatResult, error)
	// Submit records an answer and the interviewer's reply. Without a
	// conversation id a new interview is opened first.
	Submit(ctx context.Context, conversationID, message string) (*ChatResult, error)
}

type ChatDeps struct {
	Conversations pgrepo.ConversationRepo
	Messages      pgrepo.MessageRepo
	LLM           llm.Provider
	Script        *interview.Script
	Locker        lock.Locker
	Cache         cache.Cache
	Audit         AuditService
	Events        StatusPublisher
	Exports       ExportQueue
	Log           *logrus.Logger

	Timeout time.Duration // per model call
	LockTTL time.Duration
	Now     func() time.Time
}

type chatService struct {
	ChatDeps
}

func NewChatService(d ChatDeps) ChatService {
	if d.Script == nil {
		d.Script = interview.Default
	}
	if d.Locker == nil {
		d.Locker = lock.NewMemory()
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.Audit == nil {
		d.Audit = NewAuditService(nil, d.Log)
	}
	if d.Events == nil {
		d.Events = NoopEvents{}
	}
	if d.Exports == nil {
		d.Exports = NoopEvents{}
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.LockTTL <= 0 {
		d.LockTTL = d.Timeout + 30*time.Second
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &chatService{ChatDeps: d}
}

func (s *chatService) Start(ctx context.Context) (*ChatResult, error) {
	const op = "ChatService.Start"

	c, err := s.create(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create conversation", err)
	}

	q := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		Role:           models.RoleAssistant,
		Content:        s.Script.Initial().Text,
		CreatedAt:      s.Now(),
	}
	if err := s.Messages.Append(ctx, q); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save opening question", err)
	}

	s.Log.WithField("conversation_id", c.ID).Info("interview started")

	return &ChatResult{
		Messages:       []models.Message{*q},
		ConversationID: c.ID,
		Status:         c.Status,
	}, nil
}

func (s *chatService) create(ctx context.Context) (*models.Conversation, error) {
	now := s.Now()
	c := &models.Conversation{
		ID:        uuid.NewString(),
		Status:    models.StatusInProgress,
		Metadata:  models.Metadata{SessionNumber: now.UnixMilli()}.JSON(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Conversations.Create(ctx, c); err != nil {
		return nil, err
	}
	invalidateConversationList(ctx, s.Cache, s.Log)
	return c, nil
}

func (s *chatService) Submit(ctx context.Context, conversationID, message string) (*ChatResult, error) {
	const op = "ChatService.Submit"

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	if len([]rune(message)) > maxAnswerLen {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is too long", nil)
	}

	if strings.TrimSpace(conversationID) == "" {
		c, err := s.create(ctx)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to create conversation", err)
		}
		conversationID = c.ID
	}
	id, err := parseConversationID(op, conversationID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.Locker.TryLock(ctx, id, s.LockTTL)
	if err != nil {
		return nil, lockError(op, err)
	}
	defer unlock()

	conv, err := s.Conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, err, "failed to get conversation")
	}
	if conv.Status.Terminal() {
		return nil, utils.E(utils.CodeConflict, op, "interview has already ended", nil)
	}

	history, err := s.Messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load history", err)
	}

	user := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: id,
		Role:           models.RoleUser,
		Content:        message,
		CreatedAt:      s.Now(),
	}
	if err := s.Messages.Append(ctx, user); err != nil {
		return nil, appendError(op, err, "failed to save answer")
	}

	// From here on a client abort must not leave half a turn behind.
	ctx = context.WithoutCancel(ctx)

	turn := 1
	req := llm.Request{Messages: make([]llm.Message, 0, len(history)+1)}
	for _, m := range append(history, *user) {
		if m.Role == models.RoleUser && m.ID != user.ID {
			turn++
		}
		req.Messages = append(req.Messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	q := s.Script.QuestionForTurn(turn)
	record := &models.TurnRecord{
		ConversationID: id,
		Turn:           turn,
		QuestionID:     q.ID,
		Status:         conv.Status,
		DecisionSource: models.DecisionNone,
	}
	log := s.Log.WithFields(logrus.Fields{"conversation_id": id, "turn": turn})

	// the model decides what an off-script answer means; the audit only notes it
	if valid, err := s.Script.ValidateAnswer(q.ID, message); err == nil {
		record.AnswerValid = valid
		if !valid {
			log.WithField("question_id", q.ID).Debug("answer does not match the expected choices")
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	started := time.Now()
	reply, err := s.LLM.Generate(genCtx, req)
	cancel()
	record.GatewayMS = time.Since(started).Milliseconds()

	if err != nil {
		log.WithError(err).WithField("gateway_ms", record.GatewayMS).Error("language model call failed")
		record.GatewayError = err.Error()
		s.Audit.Record(ctx, record)
		return nil, &TurnError{
			Err:            gatewayError(op, err),
			ConversationID: id,
			UserMessage:    *user,
			Status:         conv.Status,
		}
	}

	out := []models.Message{*user}
	if reply.Text != "" {
		a := &models.Message{
			ID:             uuid.NewString(),
			ConversationID: id,
			Role:           models.RoleAssistant,
			Content:        reply.Text,
			CreatedAt:      s.Now(),
		}
		if err := s.Messages.Append(ctx, a); err != nil {
			return nil, appendError(op, err, "failed to save reply")
		}
		out = append(out, *a)
	}

	d := interview.Classify(reply.Text, reply.EndReason)
	logDecision(log, d)

	// the status write happens after the reply is saved, and only from in_progress
	if err := s.Conversations.Transition(ctx, id, models.StatusInProgress, d.Status, d.Reason, s.Now()); err != nil {
		switch {
		case errors.Is(err, utils.ErrConflict):
			return nil, utils.E(utils.CodeConflict, op, "interview has already ended", err)
		case errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update status", err)
	}

	record.Status = d.Status
	record.DecisionSource = d.Source
	record.EndReason = d.Reason
	s.Audit.Record(ctx, record)

	if d.Ended() {
		s.finish(ctx, log, id, d, turn)
	}

	return &ChatResult{
		Messages:       out,
		ConversationID: id,
		Status:         d.Status,
		EndReason:      d.Reason,
	}, nil
}

func (s *chatService) finish(ctx context.Context, log *logrus.Entry, id string, d interview.Decision, turn int) {
	invalidateConversationList(ctx, s.Cache, log)
	if err := s.Events.PublishStatus(ctx, StatusEvent{
		ConversationID: id,
		Status:         d.Status,
		EndReason:      d.Reason,
		Turn:           turn,
		At:             s.Now(),
	}); err != nil {
		log.WithError(err).Warn("status publish failed")
	}
	if err := s.Exports.EnqueueExport(ctx, id); err != nil {
		log.WithError(err).Warn("transcript export enqueue failed")
	}
}

func logDecision(log *logrus.Entry, d interview.Decision) {
	e := log.WithFields(logrus.Fields{
		"decision_source": d.Source,
		"end_reason":      d.Reason,
		"status":          d.Status,
	})
	switch d.Source {
	case models.DecisionDirective:
		e.Info("interview ended by end_interview")
	case models.DecisionPhrase:
		e.WithField("phrase", d.Phrase).Warn("interview end detected from reply text without end_interview")
	default:
		e.Debug("interview continues")
	}
}

func gatewayError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return utils.E(utils.CodeTimeout, op, "the interviewer took too long to respond", err)
	case errors.Is(err, llm.ErrNotConfigured):
		return utils.E(utils.CodeUnavailable, op, "the interviewer is not configured", err)
	default:
		return utils.E(utils.CodeUnavailable, op, "the interviewer is unavailable right now", err)
	}
}

func appendError(op string, err error, msg string) error {
	switch {
	case errors.Is(err, utils.ErrConflict):
		return utils.E(utils.CodeConflict, op, "conversation changed concurrently, please retry", err)
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "conversation not found", err)
	}
	return utils.E(utils.CodeInternal, op, msg, err)
}
