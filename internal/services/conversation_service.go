package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/purplefish/interviewchat/internal/cache"
	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/lock"
	"github.com/purplefish/interviewchat/internal/models"
	pgrepo "github.com/purplefish/interviewchat/internal/repositories/postgres"
	"github.com/purplefish/interviewchat/internal/utils"
)

const maxNameLen = 120

type ConversationSummary struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Status    models.Status   `json:"status"`
	Metadata  models.Metadata `json:"metadata"`
	Name      string          `json:"name,omitempty"` // display name
}

type ConversationDetail struct {
	ID        string           `json:"id"`
	Messages  []models.Message `json:"messages"`
	Status    models.Status    `json:"status"`
	EndReason string           `json:"endInterviewReason,omitempty"`
	Metadata  models.Metadata  `json:"metadata"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type ConversationService interface {
	List(ctx context.Context) ([]ConversationSummary, error)
	Get(ctx context.Context, id string) (*ConversationDetail, error)
	Rename(ctx context.Context, id, name string) (*ConversationSummary, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	// Terminate ends an in-progress interview on an operator's request.
	Terminate(ctx context.Context, id string) (*ConversationDetail, error)
	Turns(ctx context.Context, id string) ([]models.TurnRecord, error)
}

type ConversationDeps struct {
	Conversations pgrepo.ConversationRepo
	Messages      pgrepo.MessageRepo
	Locker        lock.Locker
	Cache         cache.Cache
	Audit         AuditService
	Events        StatusPublisher
	Exports       ExportQueue
	Log           *logrus.Logger
	LockTTL       time.Duration
}

type conversationService struct {
	ConversationDeps
}

func NewConversationService(d ConversationDeps) ConversationService {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Locker == nil {
		d.Locker = lock.NewMemory()
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
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.LockTTL <= 0 {
		d.LockTTL = time.Minute
	}
	return &conversationService{ConversationDeps: d}
}

func summaryOf(c models.Conversation) ConversationSummary {
	md := c.Meta()
	return ConversationSummary{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Status:    c.Status,
		Metadata:  md,
		Name:      md.DisplayName(),
	}
}

// parseConversationID rejects ids that cannot exist, so they read as not found
// instead of reaching the database.
func parseConversationID(op, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "conversation id is required", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", utils.E(utils.CodeNotFound, op, "conversation not found", utils.ErrNotFound)
	}
	return id, nil
}

func notFoundOr(op string, err error, msg string) error {
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, "conversation not found", err)
	}
	return utils.E(utils.CodeInternal, op, msg, err)
}

func (s *conversationService) List(ctx context.Context) ([]ConversationSummary, error) {
	const op = "ConversationService.List"

	// the generation is read before the rows, so a write that lands in
	// between moves readers past whatever this call stores
	key := ""
	if v, err := s.Cache.Version(ctx, cache.KeyConversationListVersion); err != nil {
		s.Log.WithError(err).Warn("conversation list cache version read failed")
	} else {
		key = cache.ConversationListKey(v)
	}

	if key != "" {
		var cached []ConversationSummary
		if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		} else if err != nil {
			s.Log.WithError(err).Warn("conversation list cache read failed")
		}
	}

	rows, err := s.Conversations.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}

	out := make([]ConversationSummary, 0, len(rows))
	for _, c := range rows {
		out = append(out, summaryOf(c))
	}

	if key != "" {
		if err := s.Cache.SetJSON(ctx, key, out, cache.ConversationListTTL); err != nil {
			s.Log.WithError(err).Warn("conversation list cache write failed")
		}
	}
	return out, nil
}

func (s *conversationService) invalidateList(ctx context.Context) {
	invalidateConversationList(ctx, s.Cache, s.Log)
}

// invalidateConversationList starts a new generation of the cached list.
func invalidateConversationList(ctx context.Context, c cache.Cache, log logrus.FieldLogger) {
	if _, err := c.Bump(context.WithoutCancel(ctx), cache.KeyConversationListVersion); err != nil {
		log.WithError(err).Warn("conversation list cache invalidation failed")
	}
}

func (s *conversationService) Get(ctx context.Context, id string) (*ConversationDetail, error) {
	const op = "ConversationService.Get"

	id, err := parseConversationID(op, id)
	if err != nil {
		return nil, err
	}

	c, err := s.Conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, err, "failed to get conversation")
	}

	msgs, err := s.Messages.ListByConversation(ctx, id, interview.ProbeMessage)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	return &ConversationDetail{
		ID:        c.ID,
		Messages:  msgs,
		Status:    c.Status,
		EndReason: c.EndReason,
		Metadata:  c.Meta(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// mergeName sets "name" in the stored metadata, keeping any other keys. A
// malformed document is replaced.
func mergeName(raw datatypes.JSON, name string) (datatypes.JSON, error) {
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil || m == nil {
			m = map[string]any{}
		}
	}
	m["name"] = name
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *conversationService) Rename(ctx context.Context, id, name string) (*ConversationSummary, error) {
	const op = "ConversationService.Rename"

	id, err := parseConversationID(op, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}
	if len([]rune(name)) > maxNameLen {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is too long", nil)
	}

	c, err := s.Conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, err, "failed to get conversation")
	}

	md, err := mergeName(c.Metadata, name)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode metadata", err)
	}
	if err := s.Conversations.UpdateMetadata(ctx, id, md); err != nil {
		return nil, notFoundOr(op, err, "failed to update conversation")
	}
	s.invalidateList(ctx)

	c.Metadata = md
	out := summaryOf(*c)
	return &out, nil
}

func (s *conversationService) Delete(ctx context.Context, id string) error {
	const op = "ConversationService.Delete"

	id, err := parseConversationID(op, id)
	if err != nil {
		return err
	}

	// a turn in flight would otherwise write its reply after the delete
	unlock, err := s.Locker.TryLock(ctx, id, s.LockTTL)
	if err != nil {
		return lockError(op, err)
	}
	defer unlock()

	if err := s.Conversations.Delete(ctx, id); err != nil {
		return notFoundOr(op, err, "failed to delete conversation")
	}
	s.invalidateList(ctx)
	s.Audit.Forget(context.WithoutCancel(ctx), id)
	return nil
}

func (s *conversationService) DeleteAll(ctx context.Context) (int64, error) {
	const op = "ConversationService.DeleteAll"

	rows, err := s.Conversations.List(ctx)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}

	// refuse while any interview is mid-turn
	unlocks := make([]lock.Unlock, 0, len(rows))
	defer func() {
		for _, u := range unlocks {
			u()
		}
	}()
	for _, c := range rows {
		u, err := s.Locker.TryLock(ctx, c.ID, s.LockTTL)
		if err != nil {
			return 0, lockError(op, err)
		}
		unlocks = append(unlocks, u)
	}

	n, err := s.Conversations.DeleteAll(ctx)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to delete conversations", err)
	}
	s.invalidateList(ctx)
	for _, c := range rows {
		s.Audit.Forget(context.WithoutCancel(ctx), c.ID)
	}
	return n, nil
}

func (s *conversationService) Terminate(ctx context.Context, id string) (*ConversationDetail, error) {
	const op = "ConversationService.Terminate"

	id, err := parseConversationID(op, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.Locker.TryLock(ctx, id, s.LockTTL)
	if err != nil {
		return nil, lockError(op, err)
	}
	defer unlock()

	now := time.Now().UTC()
	err = s.Conversations.Transition(ctx, id, models.StatusInProgress, models.StatusTerminated, interview.ReasonTerminatedByOperator, now)
	switch {
	case errors.Is(err, utils.ErrConflict):
		return nil, utils.E(utils.CodeConflict, op, "interview has already ended", err)
	case err != nil:
		return nil, notFoundOr(op, err, "failed to terminate conversation")
	}

	s.Log.WithFields(logrus.Fields{
		"conversation_id": id,
		"end_reason":      interview.ReasonTerminatedByOperator,
	}).Info("interview terminated by operator")

	s.invalidateList(ctx)
	bg := context.WithoutCancel(ctx)
	if err := s.Events.PublishStatus(bg, StatusEvent{
		ConversationID: id,
		Status:         models.StatusTerminated,
		EndReason:      interview.ReasonTerminatedByOperator,
		At:             now,
	}); err != nil {
		s.Log.WithError(err).WithField("conversation_id", id).Warn("status publish failed")
	}
	if err := s.Exports.EnqueueExport(bg, id); err != nil {
		s.Log.WithError(err).WithField("conversation_id", id).Warn("transcript export enqueue failed")
	}

	return s.Get(ctx, id)
}

func (s *conversationService) Turns(ctx context.Context, id string) ([]models.TurnRecord, error) {
	const op = "ConversationService.Turns"

	id, err := parseConversationID(op, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Conversations.GetByID(ctx, id); err != nil {
		return nil, notFoundOr(op, err, "failed to get conversation")
	}
	return s.Audit.Turns(ctx, id)
}

func lockError(op string, err error) error {
	if errors.Is(err, lock.ErrBusy) {
		return utils.E(utils.CodeConflict, op, "another answer for this conversation is being processed", err)
	}
	return utils.E(utils.CodeUnavailable, op, "failed to lock conversation", err)
}
