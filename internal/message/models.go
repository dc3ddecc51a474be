package message

import "time"

// Receiver is the direction sentinel: messages addressed to the assistant
// come from the user, messages addressed to "user" are assistant replies.
const (
	ReceiverAI   = "ai"
	ReceiverUser = "user"
)

// Realtime event names pushed on the user's channel.
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
)

type Message struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"` // ULID
	UserID    uint64    `gorm:"not null;index:idx_msg_user_created,priority:1" json:"-"`
	Receiver  string    `gorm:"type:varchar(8);not null" json:"receiver"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_msg_user_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// Sender carries the display attributes joined at read time.
type Sender struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatar_color"`
}

// View is a Message expanded with its sender profile; this is the shape
// that crosses the wire, both over REST and over the realtime channel.
type View struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingPayload is the user_typing event body. Only assistant typing is
// broadcast today; IsAI stays explicit so other senders can be added.
type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
	IsAI     bool `json:"isAI"`
}
