package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TurnsCollection = "interview_turns"

func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := db.Collection(TurnsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		// expire at ExpiresAt
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "turn", Value: 1}},
			Options: options.Index().SetName("by_conversation_turn"),
		},
		{
			Keys:    bson.D{{Key: "decision_source", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_source_created"),
		},
	})
	return err
}
