// Package eventsub implements a long-lived client for the Twitch EventSub
// WebSocket transport: it maintains a logically continuous subscription
// session across a welcome handshake, keepalives, notifications,
// revocations, and server-initiated endpoint changeovers.
package eventsub

import "time"

// MessageType identifies the kind of a decoded EventSub message, taken
// verbatim from the wire's metadata.message_type field.
type MessageType string

// Recognized message kinds.
const (
	MessageTypeSessionWelcome   MessageType = "session_welcome"
	MessageTypeSessionKeepalive MessageType = "session_keepalive"
	MessageTypeSessionReconnect MessageType = "session_reconnect"
	MessageTypeNotification     MessageType = "notification"
	MessageTypeRevocation       MessageType = "revocation"
)

// Metadata is carried by every EventSub message.
type Metadata struct {
	MessageID           string
	MessageType         MessageType
	MessageTimestamp    time.Time
	SubscriptionType    string
	SubscriptionVersion string
}

// Session describes the session payload carried by session_welcome and
// session_reconnect messages.
type Session struct {
	ID                      string
	Status                  string
	KeepaliveTimeoutSeconds int
	ReconnectURL            string
	ConnectedAt             time.Time
}

// Subscription describes the subscription payload carried by notification
// and revocation messages.
type Subscription struct {
	ID        string
	Status    string
	Type      string
	Version   string
	Cost      int
	Condition map[string]any
	Transport map[string]any
	CreatedAt time.Time
}

// Message is a tagged variant of the five message kinds the transport can
// deliver. Only the fields relevant to Metadata.MessageType are populated:
// Session for SessionWelcome/SessionReconnect, Subscription+Event for
// Notification/Revocation, neither for SessionKeepalive.
type Message struct {
	Metadata     Metadata
	Session      *Session
	Subscription *Subscription
	Event        map[string]any
}

// IsSessionWelcome reports whether m is a session_welcome message.
func (m *Message) IsSessionWelcome() bool {
	return m != nil && m.Metadata.MessageType == MessageTypeSessionWelcome
}
