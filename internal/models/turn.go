package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DecisionSource tells which classifier branch produced a turn's outcome.
type DecisionSource string

const (
	DecisionDirective DecisionSource = "directive"
	DecisionPhrase    DecisionSource = "phrase"
	DecisionNone      DecisionSource = "none"
)

// TurnRecord is one submit_answer evaluation, kept for auditing.
type TurnRecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Turn           int                `bson:"turn" json:"turn"`
	QuestionID     string             `bson:"question_id,omitempty" json:"question_id,omitempty"`

	// AnswerValid is false when a choice question got an answer outside its choices.
	AnswerValid bool `bson:"answer_valid" json:"answer_valid"`

	DecisionSource DecisionSource `bson:"decision_source" json:"decision_source"`
	EndReason      string         `bson:"end_reason,omitempty" json:"end_reason,omitempty"`
	Status         Status         `bson:"status" json:"status"`

	GatewayMS    int64  `bson:"gateway_ms" json:"gateway_ms"`
	GatewayError string `bson:"gateway_error,omitempty" json:"gateway_error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // TTL index
}
