package eventsub

import "fmt"

// ViolationReason classifies why a ProtocolViolation was raised.
type ViolationReason string

// Recognized protocol violation reasons.
const (
	ReasonStaleMessage            ViolationReason = "stale_message"
	ReasonDuplicateWelcome        ViolationReason = "duplicate_welcome"
	ReasonPreWelcomeMessage       ViolationReason = "pre_welcome_message"
	ReasonReconnectMissingURL     ViolationReason = "reconnect_missing_url"
	ReasonReconnectWelcomeMissing ViolationReason = "reconnect_welcome_missing"
	ReasonUnrecognizedKind        ViolationReason = "unrecognized_post_welcome_kind"
)

// ProtocolViolation is a non-recoverable fault in the EventSub protocol
// exchange. Client.Connect returns it for every protocol fault; its other
// non-nil returns are setup and dial failures and socket read errors other
// than a peer close.
type ProtocolViolation struct {
	Reason  ViolationReason
	Detail  string
	Wrapped error
}

func (e *ProtocolViolation) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("protocol violation (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("protocol violation (%s)", e.Reason)
}

func (e *ProtocolViolation) Unwrap() error { return e.Wrapped }

func violation(reason ViolationReason, detail string) error {
	return &ProtocolViolation{Reason: reason, Detail: detail}
}

// DisconnectReason classifies why the session ended without a protocol
// violation — the caller's outer policy, not this core, decides whether to
// reconnect.
type DisconnectReason string

const (
	// DisconnectKeepaliveTimeout means the watchdog fired: no traffic
	// arrived within keepalive+grace.
	DisconnectKeepaliveTimeout DisconnectReason = "keepalive_timeout"
	// DisconnectRemoteClosed means the peer closed the WebSocket.
	DisconnectRemoteClosed DisconnectReason = "remote_disconnected"
)

func (r DisconnectReason) String() string { return string(r) }
