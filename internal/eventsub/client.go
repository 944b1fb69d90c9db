package eventsub

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/Guliveer/twitch-eventsub-go/internal/constants"
)

// Config configures a Client. URL and the callback-bearing fields have
// defaults; Sink is the only field a caller must always set to get any use
// out of the client.
type Config struct {
	// URL is the EventSub WebSocket endpoint to dial for the initial
	// connection. Defaults to constants.EventSubWebSocketURL.
	URL string

	// KeepaliveTimeoutSeconds requests a keepalive interval from the
	// server. NewClient rejects a value outside
	// [constants.MinKeepaliveSeconds, constants.MaxKeepaliveSeconds]. A nil
	// value omits the query parameter and lets the server pick its default.
	KeepaliveTimeoutSeconds *int

	// Sink receives every session lifecycle and message event. Required.
	Sink Sink

	// Clock abstracts time for the keepalive watchdog. Defaults to the
	// real wall clock.
	Clock Clock

	// Dialer opens WebSocket connections. Defaults to the production
	// coder/websocket-backed dialer.
	Dialer Dialer

	// Parser decodes raw text frames into Messages. Defaults to
	// NewJSONParser() with no extra subscription types.
	Parser Parser

	// Logger receives structured diagnostics about changeovers and
	// internal state transitions. Defaults to slog.Default().
	Logger *slog.Logger

	// TolerateUnknownPostWelcomeKinds, when true, reports a post-welcome
	// message whose kind the Parser accepted but the session loop does not
	// handle through Sink.MessageParsingFailed instead of failing the
	// session with a ProtocolViolation. Off by default. A message_type the
	// Parser itself does not recognize (JSONParser returns
	// ParseUnknownMessageType) is always reported through
	// Sink.UnknownMessageTypeReceived and never ends the session.
	TolerateUnknownPostWelcomeKinds bool

	// ChangeoverDrainDelay, when non-zero, is how long the session loop
	// waits after a changeover's welcome arrives before closing the old
	// socket. The loop processes no messages during this wait; a message
	// the old socket delivers in that time is discarded when the sockets
	// are swapped. Zero means swap immediately.
	ChangeoverDrainDelay time.Duration
}

func (cfg *Config) setDefaults() {
	if cfg.URL == "" {
		cfg.URL = constants.EventSubWebSocketURL
	}
	if cfg.Clock == nil {
		cfg.Clock = NewRealClock()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = NewDialer()
	}
	if cfg.Parser == nil {
		cfg.Parser = NewJSONParser()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

func (cfg Config) validate() error {
	if cfg.Sink == nil {
		return fmt.Errorf("eventsub: Config.Sink is required")
	}
	if cfg.KeepaliveTimeoutSeconds != nil {
		n := *cfg.KeepaliveTimeoutSeconds
		if n < constants.MinKeepaliveSeconds || n > constants.MaxKeepaliveSeconds {
			return fmt.Errorf("eventsub: KeepaliveTimeoutSeconds %d outside [%d, %d]", n, constants.MinKeepaliveSeconds, constants.MaxKeepaliveSeconds)
		}
	}
	return nil
}

// Client is a long-lived EventSub WebSocket session. One Client dials,
// maintains, and seamlessly migrates exactly one logical session across
// Connect's lifetime; it is not safe to call Connect concurrently on the
// same Client.
type Client struct {
	cfg Config
	log *slog.Logger
}

// NewClient validates cfg, applies defaults, and returns a ready-to-run
// Client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &Client{cfg: cfg, log: cfg.Logger}, nil
}

// buildURL appends the keepalive_timeout_seconds query parameter to the
// configured URL, if one was requested.
func (c *Client) buildURL() (string, error) {
	if c.cfg.KeepaliveTimeoutSeconds == nil {
		return c.cfg.URL, nil
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing eventsub url %q: %w", c.cfg.URL, err)
	}
	q := u.Query()
	q.Set("keepalive_timeout_seconds", strconv.Itoa(*c.cfg.KeepaliveTimeoutSeconds))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the initial session and blocks inside the session loop,
// which treats the first read exactly like every subsequent one — the same
// stale-check, dedup, and dispatch-by-kind pipeline in handleRead applies to
// the initial session_welcome as much as to anything that follows it. It
// returns when the session ends. A nil return means the session ended
// cleanly — either ctx was cancelled, or the peer closed the socket or the
// keepalive watchdog fired and Sink.ConnectionLost already reported it; a
// non-nil return is a ProtocolViolation, a failure to dial the initial or a
// changeover endpoint, or a socket read error other than a peer close.
func (c *Client) Connect(ctx context.Context) error {
	dialURL, err := c.buildURL()
	if err != nil {
		return err
	}

	sock, err := c.cfg.Dialer.Dial(ctx, dialURL)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", dialURL, err)
	}

	st := &session{
		socket: sock,
		// The requested keepalive sizes the watchdog even before the welcome
		// arrives to confirm it — a caller that asked for a tight interval
		// wants to fail fast if the server is slow to welcome, not wait out
		// the maximum. handleRead's MessageTypeSessionWelcome case narrows
		// this to the server's own reported value once it's known.
		keepaliveSeconds: initialKeepaliveSeconds(c.cfg.KeepaliveTimeoutSeconds),
		lastMessageAt:    c.cfg.Clock.Now(),
		seenIDs:          NewTTLSet(c.cfg.Clock, constants.DedupWindow),
	}

	return c.runLoop(ctx, st)
}

// initialKeepaliveSeconds returns the pre-welcome watchdog sizing: the
// requested interval if the caller set one, or the most permissive default
// otherwise.
func initialKeepaliveSeconds(requested *int) int {
	if requested == nil {
		return constants.MaxKeepaliveSeconds
	}
	return clampKeepalive(*requested)
}
