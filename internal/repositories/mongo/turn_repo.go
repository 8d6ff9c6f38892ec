package mongo

import (
	"context"
	"time"

	"github.com/purplefish/interviewchat/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TurnRepository interface {
	Insert(ctx context.Context, t *models.TurnRecord) error
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.TurnRecord, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}

type turnRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewTurnRepo(db *mongo.Database, collection string, ttl time.Duration) TurnRepository {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &turnRepo{col: db.Collection(collection), ttl: ttl}
}

func (r *turnRepo) Insert(ctx context.Context, t *models.TurnRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = t.CreatedAt.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *turnRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.TurnRecord, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().
			SetSort(bson.D{{Key: "turn", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TurnRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *turnRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	return err
}
