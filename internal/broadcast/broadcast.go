// Package broadcast propagates login and logout events between console
// instances sharing one device.
package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageType enumerates supported message identifiers.
type MessageType string

const (
	MessageLogin  MessageType = "LOGIN"
	MessageLogout MessageType = "LOGOUT"
)

// UserSummary is the payload carried by LOGIN messages.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
}

// Message is the transient envelope relayed to sibling instances. It is
// never persisted beyond the instant needed to deliver it. Origin names
// the sending instance so transports that echo back to the sender (Redis
// pub/sub does) can be filtered by the receiver.
type Message struct {
	ID        string       `json:"id"`
	Origin    string       `json:"origin"`
	Type      MessageType  `json:"type"`
	Reason    string       `json:"reason,omitempty"`
	User      *UserSummary `json:"user,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Channel   string       `json:"channel,omitempty"`
}

// NewMessage stamps a fresh envelope.
func NewMessage(origin string, msgType MessageType) Message {
	return Message{
		ID:        uuid.NewString(),
		Origin:    origin,
		Type:      msgType,
		Timestamp: time.Now(),
	}
}

// Handler receives messages delivered on a subscribed channel.
type Handler func(msg Message)

// Broadcaster is a named-channel publish/subscribe medium. Delivery is
// fire-and-forget: no acknowledgement, no retry, and a message published
// before a sibling subscribed is simply lost.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, msg Message) error
	Subscribe(channel string, h Handler) (cancel func())
	Close() error
}
