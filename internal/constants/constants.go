// Package constants defines the wire-protocol constants, default timeouts,
// and endpoint defaults used by the EventSub WebSocket session client.
package constants

import "time"

const (
	// EventSubWebSocketURL is the default Twitch EventSub WebSocket endpoint.
	EventSubWebSocketURL = "wss://eventsub.wss.twitch.tv/ws"
)

const (
	// KeepaliveGrace is added on top of the negotiated keepalive interval
	// before the watchdog declares the connection lost.
	KeepaliveGrace = 3 * time.Second
	// MinKeepaliveSeconds is the lowest keepalive_timeout_seconds Twitch accepts.
	MinKeepaliveSeconds = 10
	// MaxKeepaliveSeconds is the highest keepalive_timeout_seconds Twitch accepts.
	MaxKeepaliveSeconds = 600
	// MaxMessageAge is the replay-defense window: messages older than this
	// relative to the clock are rejected as a protocol violation.
	MaxMessageAge = 10 * time.Minute
	// DedupWindow is the sliding window over which message ids are deduplicated.
	DedupWindow = 10 * time.Minute
)

const (
	// DefaultReadLimit bounds the size of a single reassembled text message.
	DefaultReadLimit = 1 << 20 // 1 MiB
	// DefaultGracefulShutdownTimeout is the timeout for graceful HTTP server shutdown.
	DefaultGracefulShutdownTimeout = 5 * time.Second
)
