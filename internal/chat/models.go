package chat

import "time"

type Thread struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ThreadID     string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"thread_id"`
	UserID       uint64    `gorm:"index;not null" json:"-"`
	Title        string    `gorm:"type:varchar(255)" json:"title"`
	MessageCount int64     `gorm:"not null;default:0" json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Thread) TableName() string { return "chat_threads" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID  string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_thread_id,priority:2" json:"thread_id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_msg_user_thread_id,priority:1" json:"-"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }
