package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/purplefish/interviewchat/internal/models"
	mongorepo "github.com/purplefish/interviewchat/internal/repositories/mongo"
	"github.com/purplefish/interviewchat/internal/utils"
)

// AuditService keeps a per-turn trail of classifier decisions. Recording
// never fails a turn.
type AuditService interface {
	Record(ctx context.Context, t *models.TurnRecord)
	Turns(ctx context.Context, conversationID string) ([]models.TurnRecord, error)
	Forget(ctx context.Context, conversationID string)
}

type auditService struct {
	turns mongorepo.TurnRepository
	log   *logrus.Logger
}

// NewAuditService accepts a nil repository, in which case nothing is kept.
func NewAuditService(turns mongorepo.TurnRepository, log *logrus.Logger) AuditService {
	if log == nil {
		log = logrus.New()
	}
	return &auditService{turns: turns, log: log}
}

func (s *auditService) Record(ctx context.Context, t *models.TurnRecord) {
	if s.turns == nil || t == nil {
		return
	}
	if err := s.turns.Insert(ctx, t); err != nil {
		s.log.WithError(err).WithField("conversation_id", t.ConversationID).Warn("turn audit insert failed")
	}
}

func (s *auditService) Turns(ctx context.Context, conversationID string) ([]models.TurnRecord, error) {
	const op = "AuditService.Turns"

	if s.turns == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "turn audit is not enabled", nil)
	}
	out, err := s.turns.ListByConversation(ctx, conversationID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list turns", err)
	}
	if out == nil {
		out = []models.TurnRecord{}
	}
	return out, nil
}

func (s *auditService) Forget(ctx context.Context, conversationID string) {
	if s.turns == nil {
		return
	}
	if err := s.turns.DeleteByConversation(ctx, conversationID); err != nil {
		s.log.WithError(err).WithField("conversation_id", conversationID).Warn("turn audit delete failed")
	}
}
