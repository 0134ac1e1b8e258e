package ledger

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is the header row grouping turns under one identity and
// page context. Created once, never updated or deleted.
type Conversation struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"conversation_id"`
	UserID         string    `gorm:"type:varchar(64);index;not null" json:"-"`
	Name           string    `gorm:"type:varchar(128)" json:"name"`
	Email          *string   `gorm:"type:varchar(255);index" json:"-"` // nil when blank, never empty string
	Title          string    `gorm:"type:varchar(64);not null" json:"title"`
	Page           string    `gorm:"type:varchar(255);not null" json:"page"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Turn is one utterance. The (conversation_id, timestamp) index is the
// ordering key; rows are append-only.
type Turn struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_turns_conv_ts,priority:1" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Meta           *string   `gorm:"type:text" json:"-"`
	Timestamp      time.Time `gorm:"not null;index:idx_turns_conv_ts,priority:2" json:"timestamp"`
}

func (Turn) TableName() string { return "turns" }

// Feedback is a rating attached to a conversation. CustomText is only
// ever set under the "other" tag; the recorder enforces that before the
// row reaches the store.
type Feedback struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversation_id"`
	Rating         string    `gorm:"type:varchar(8);not null" json:"rating"`
	Tag            *string   `gorm:"type:varchar(64)" json:"tag,omitempty"`
	CustomText     *string   `gorm:"type:text" json:"custom_text,omitempty"`
	UserID         *string   `gorm:"type:varchar(64)" json:"-"`
	Page           *string   `gorm:"type:varchar(255)" json:"page,omitempty"`
	MessageID      *string   `gorm:"type:varchar(64)" json:"message_id,omitempty"`
	Timestamp      time.Time `gorm:"not null" json:"timestamp"`
}

func (Feedback) TableName() string { return "feedback" }
