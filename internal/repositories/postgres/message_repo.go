package postgres

import (
	"context"
	"errors"

	"github.com/purplefish/interviewchat/internal/models"
	"github.com/purplefish/interviewchat/internal/utils"
	"gorm.io/gorm"
)

type MessageRepo interface {
	// Append stores m as the next message of its conversation and fills m.Seq.
	// It returns utils.ErrNotFound once the conversation is gone.
	Append(ctx context.Context, m *models.Message) error
	ListByConversation(ctx context.Context, conversationID string, exclude ...string) ([]models.Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Append(ctx context.Context, m *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", m.ConversationID).
			Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return utils.ErrNotFound
		}

		var last int
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ?", m.ConversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		m.Seq = last + 1
		return tx.Create(m).Error
	})
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// a concurrent append took the same seq
		return utils.ErrConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return utils.ErrNotFound
	}
	return err
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string, exclude ...string) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if len(exclude) > 0 {
		q = q.Where("content NOT IN ?", exclude)
	}
	var rows []models.Message
	err := q.Order("created_at ASC").Order("seq ASC").Find(&rows).Error
	return rows, err
}
