package eventsub

// Sink is the caller's observer over session lifecycle and message events.
// All methods are invoked synchronously from the session loop in the order
// events occur; a handler that panics propagates out of Connect exactly as
// it would from any other synchronous call — the session does not recover
// handler panics on the caller's behalf.
type Sink interface {
	// Connected fires exactly once per initial socket, carrying the welcome
	// that established the session. Changeovers never re-fire it.
	Connected(welcome *Message)
	// NotificationReceived fires once per deduplicated notification, in
	// receive order.
	NotificationReceived(msg *Message)
	// RevocationReceived fires once per deduplicated revocation.
	RevocationReceived(msg *Message)
	// ConnectionLost fires at most once per session and is always the last
	// event the loop emits — never fired on caller-initiated cancellation.
	ConnectionLost(reason DisconnectReason)
	// ChangeoverApplied fires each time the session migrates to a new
	// socket following a session_reconnect. The session itself is
	// considered continuous — Connected does not re-fire.
	ChangeoverApplied(newSessionID string)
	// MessageParsingFailed fires for a message whose envelope failed to
	// decode; the loop continues without updating liveness or dedup state.
	MessageParsingFailed(detail string)
	// UnknownMessageTypeReceived fires for an unrecognized metadata.message_type.
	UnknownMessageTypeReceived(typeName string)
	// UnknownSubscriptionTypeReceived fires for an unrecognized metadata.subscription_type.
	UnknownSubscriptionTypeReceived(typeName string)
}

// FuncSink adapts a set of optional callbacks into a Sink, so a caller that
// only cares about one or two event kinds doesn't have to implement the
// full interface. Nil fields are treated as no-ops.
type FuncSink struct {
	OnConnected                       func(welcome *Message)
	OnNotificationReceived            func(msg *Message)
	OnRevocationReceived              func(msg *Message)
	OnConnectionLost                  func(reason DisconnectReason)
	OnChangeoverApplied               func(newSessionID string)
	OnMessageParsingFailed            func(detail string)
	OnUnknownMessageTypeReceived      func(typeName string)
	OnUnknownSubscriptionTypeReceived func(typeName string)
}

func (f FuncSink) Connected(welcome *Message) {
	if f.OnConnected != nil {
		f.OnConnected(welcome)
	}
}

func (f FuncSink) NotificationReceived(msg *Message) {
	if f.OnNotificationReceived != nil {
		f.OnNotificationReceived(msg)
	}
}

func (f FuncSink) RevocationReceived(msg *Message) {
	if f.OnRevocationReceived != nil {
		f.OnRevocationReceived(msg)
	}
}

func (f FuncSink) ConnectionLost(reason DisconnectReason) {
	if f.OnConnectionLost != nil {
		f.OnConnectionLost(reason)
	}
}

func (f FuncSink) ChangeoverApplied(newSessionID string) {
	if f.OnChangeoverApplied != nil {
		f.OnChangeoverApplied(newSessionID)
	}
}

func (f FuncSink) MessageParsingFailed(detail string) {
	if f.OnMessageParsingFailed != nil {
		f.OnMessageParsingFailed(detail)
	}
}

func (f FuncSink) UnknownMessageTypeReceived(typeName string) {
	if f.OnUnknownMessageTypeReceived != nil {
		f.OnUnknownMessageTypeReceived(typeName)
	}
}

func (f FuncSink) UnknownSubscriptionTypeReceived(typeName string) {
	if f.OnUnknownSubscriptionTypeReceived != nil {
		f.OnUnknownSubscriptionTypeReceived(typeName)
	}
}

var _ Sink = FuncSink{}
