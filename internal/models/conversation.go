package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated" // ended by an operator, never by the interview flow
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusTerminated:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusTerminated
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Conversation struct {
	ID        string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Status    Status         `gorm:"column:status;type:text;index;not null" json:"status"`
	EndReason string         `gorm:"column:end_reason;type:text" json:"endInterviewReason,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"-"`
	CreatedAt time.Time      `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (Conversation) TableName() string { return "conversations" }

// Meta decodes the stored metadata, falling back to the zero value.
func (c *Conversation) Meta() Metadata { return ParseMetadata(c.Metadata) }

type Message struct {
	ID             string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;type:uuid;not null;uniqueIndex:idx_messages_conversation_seq,priority:1" json:"conversationId"`
	Seq            int       `gorm:"column:seq;not null;uniqueIndex:idx_messages_conversation_seq,priority:2" json:"-"`
	Role           Role      `gorm:"column:role;type:text;not null" json:"role"`
	Content        string    `gorm:"column:content;type:text" json:"content"`
	CreatedAt      time.Time `gorm:"column:created_at;index" json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

// Metadata is the typed view of Conversation.Metadata.
type Metadata struct {
	Name          string `json:"name,omitempty"`
	SessionNumber int64  `json:"sessionNumber,omitempty"`
}

// ParseMetadata never fails: absent, malformed or mistyped fields are dropped.
func ParseMetadata(raw []byte) Metadata {
	var md Metadata
	if len(raw) == 0 {
		return md
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return md
	}
	if v, ok := m["name"].(string); ok {
		md.Name = strings.TrimSpace(v)
	}
	switch v := m["sessionNumber"].(type) {
	case float64:
		md.SessionNumber = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			md.SessionNumber = n
		}
	}
	return md
}

func (m Metadata) JSON() datatypes.JSON {
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

func (m Metadata) SessionLabel() string {
	if m.SessionNumber <= 0 {
		return ""
	}
	return "Session " + strconv.FormatInt(m.SessionNumber, 10)
}

// DisplayName prefers the user-chosen name over the session label.
func (m Metadata) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.SessionLabel()
}
