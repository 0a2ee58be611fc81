package domain

import "time"

// MessageStatus is the delivery status stored with each message.
type MessageStatus string

// Only StatusSent is ever assigned. Delivered and read are reserved for
// receipt tracking and have no transitions wired to them.
const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Valid reports whether s is one of the declared statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

// Message is a point to point chat message. Messages are written once by
// the relay and never mutated.
type Message struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	Receiver  string        `json:"receiver"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
}

// NewMessage builds a freshly sent message stamped with now (UTC).
func NewMessage(id, sender, receiver, content string, now time.Time) *Message {
	return &Message{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: now.UTC(),
		Status:    StatusSent,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Sender    string    `gorm:"type:varchar(255);not null"`
	Receiver  string    `gorm:"type:varchar(255);not null"`
	Content   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"not null"`
	Status    string    `gorm:"type:varchar(16);not null;default:sent"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
		Status:    MessageStatus(m.Status),
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Status:    string(msg.Status),
	}
}
