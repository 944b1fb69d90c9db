// Package model holds small cross-cutting types shared by the logger,
// notify, and eventsub packages — kept separate so none of those packages
// has to import the others just to share a notification event vocabulary.
package model

// Event represents a session-client event type for notification filtering
// and structured logging.
type Event string

// All supported session-client events.
const (
	EventConnected                Event = "SESSION_CONNECTED"
	EventNotificationReceived     Event = "NOTIFICATION_RECEIVED"
	EventRevocationReceived       Event = "REVOCATION_RECEIVED"
	EventConnectionLost           Event = "CONNECTION_LOST"
	EventParsingFailed            Event = "PARSE_FAILURE"
	EventUnknownMessageType       Event = "UNKNOWN_MESSAGE_TYPE"
	EventUnknownSubscriptionType  Event = "UNKNOWN_SUBSCRIPTION_TYPE"
	EventChangeoverApplied        Event = "CHANGEOVER_APPLIED"
	EventTest                     Event = "TEST"
)

// AllEvents returns a slice of all defined events.
func AllEvents() []Event {
	return []Event{
		EventConnected,
		EventNotificationReceived,
		EventRevocationReceived,
		EventConnectionLost,
		EventParsingFailed,
		EventUnknownMessageType,
		EventUnknownSubscriptionType,
		EventChangeoverApplied,
		EventTest,
	}
}

// String returns the string representation of an Event.
func (e Event) String() string {
	return string(e)
}

// Severity classifies how urgently an Event deserves a human's attention.
// Notification providers use it to pick colors, priorities, and silent/loud
// delivery instead of treating every session event identically.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the lowercase name of the severity, for logging and
// webhook payloads.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// ParseSeverity converts a config string to a Severity. An empty or
// unrecognized string defaults to SeverityInfo — the most permissive
// threshold, so an unset min_severity notifies on everything a provider's
// event list already allows.
func ParseSeverity(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "critical":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// Severity reports how urgent e is. A session staying healthy (connecting,
// receiving notifications, migrating endpoints) is informational; anything
// that means the session dropped, got revoked, or the wire desynced is at
// least a warning — a revocation is escalated to critical because it means
// a subscription needs to be recreated out-of-band before it resumes.
func (e Event) Severity() Severity {
	switch e {
	case EventRevocationReceived:
		return SeverityCritical
	case EventConnectionLost, EventParsingFailed, EventUnknownMessageType, EventUnknownSubscriptionType:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// ParseEvent converts a string to an Event. Returns empty string if invalid.
func ParseEvent(s string) Event {
	for _, e := range AllEvents() {
		if string(e) == s {
			return e
		}
	}
	return ""
}
