package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
	RoleSystem      Role = "system"
)

// MessageType tags what a message is.
type MessageType string

const (
	TypeGreeting       MessageType = "greeting"
	TypeResponse       MessageType = "response"
	TypeQuestion       MessageType = "question"
	TypeAnswer         MessageType = "answer"
	TypeAcknowledgment MessageType = "acknowledgment"
	TypeMessage        MessageType = "message"
	TypeRound          MessageType = "round"
	TypeNotice         MessageType = "notice"
	TypeClosing        MessageType = "closing"
)

// Message is one entry of the conversation.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// Log is the append-only conversation of a session.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message and returns it with its id assigned.
func (l *Log) Append(role Role, typ MessageType, content string, at time.Time) Message {
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Type:      typ,
		Timestamp: at,
	}
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
	return m
}

// Messages returns a copy of all messages in order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Message, len(l.messages))
	copy(result, l.messages)
	return result
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the most recent message of role, if any.
func (l *Log) Last(role Role) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == role {
			return l.messages[i], true
		}
	}
	return Message{}, false
}
