// Package runner wires one configured watch target — an eventsub.Client,
// its structured-logging and notification outputs, and a live status
// snapshot for the dashboard — into a single reconnect-with-backoff loop.
package runner

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/Guliveer/twitch-eventsub-go/internal/config"
	"github.com/Guliveer/twitch-eventsub-go/internal/constants"
	"github.com/Guliveer/twitch-eventsub-go/internal/eventsub"
	"github.com/Guliveer/twitch-eventsub-go/internal/logger"
	"github.com/Guliveer/twitch-eventsub-go/internal/model"
	"github.com/Guliveer/twitch-eventsub-go/internal/notify"
	"github.com/Guliveer/twitch-eventsub-go/internal/server"
)

// Runner owns one watch target's lifecycle: connect, process, reconnect on
// loss with exponential backoff, forever until ctx is cancelled.
type Runner struct {
	name   string
	cfg    *config.TargetConfig
	log    *logger.Logger
	notify *notify.Dispatcher

	notificationCount atomic.Int64
	changeoverCount   atomic.Int64

	mu     sync.RWMutex
	status server.TargetStatus
}

// New creates a Runner for a single watch target.
func New(cfg *config.TargetConfig, log *logger.Logger, dispatcher *notify.Dispatcher) *Runner {
	r := &Runner{
		name:   cfg.Name,
		cfg:    cfg,
		log:    log,
		notify: dispatcher,
	}
	r.setState(server.StateConnecting, "")
	return r
}

// Status returns a point-in-time snapshot of this target's session health.
// Safe for concurrent use.
func (r *Runner) Status() server.TargetStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := r.status
	st.NotificationCount = r.notificationCount.Load()
	st.ChangeoverCount = r.changeoverCount.Load()
	return st
}

func (r *Runner) setState(state server.SessionState, lastErr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Name = r.name
	r.status.State = state
	r.status.LastError = lastErr
}

// dialURL returns the target's configured WebSocket endpoint, or the
// default EventSub endpoint if the target didn't set one.
func (r *Runner) dialURL() string {
	if r.cfg.URL != "" {
		return r.cfg.URL
	}
	return constants.EventSubWebSocketURL
}

// Preflight opens and immediately closes a socket to the target's endpoint,
// without waiting for a session_welcome. It exists so cmd/eventsub-watch can
// fan a reachability check out across every configured target with bounded
// concurrency before committing to the long-lived, individually-backed-off
// Run loops — a target that's unreachable at startup still gets picked up
// by Run's own reconnect loop, so a Preflight failure is reported, not fatal.
func (r *Runner) Preflight(ctx context.Context) error {
	sock, err := eventsub.NewDialer().Dial(ctx, r.dialURL())
	if err != nil {
		return fmt.Errorf("preflight dial for target %s: %w", r.name, err)
	}
	_ = sock.Close(websocket.StatusNormalClosure, "preflight check complete")
	return nil
}

// Run connects, processes messages, and reconnects with exponential backoff
// on every non-cancellation disconnect, until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 60 * time.Second

	for {
		r.setState(server.StateConnecting, "")

		var keepalive *int
		if r.cfg.KeepaliveSeconds != 0 {
			v := r.cfg.KeepaliveSeconds
			keepalive = &v
		}

		client, err := eventsub.NewClient(eventsub.Config{
			URL:                             r.cfg.URL,
			KeepaliveTimeoutSeconds:         keepalive,
			Sink:                            r,
			Logger:                          r.log.Logger,
			TolerateUnknownPostWelcomeKinds: r.cfg.TolerateUnknownKinds,
		})
		if err != nil {
			return err
		}

		err = client.Connect(ctx)
		if ctx.Err() != nil {
			r.setState(server.StateDead, "")
			return ctx.Err()
		}
		if err != nil {
			r.log.Error("eventsub session ended with error", "target", r.name, "error", err)
			r.setState(server.StateReconnecting, err.Error())
		} else {
			// A nil return means the session ran cleanly until the transport
			// dropped out from under it (already reported through
			// ConnectionLost) — that's a healthy connection, not a flapping
			// one, so the next attempt starts from a cold backoff again.
			backoff = time.Second
			r.setState(server.StateReconnecting, "")
		}

		select {
		case <-ctx.Done():
			r.setState(server.StateDead, "")
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(math.Min(float64(backoff*2), float64(maxBackoff)))
	}
}

// Connected implements eventsub.Sink.
func (r *Runner) Connected(welcome *eventsub.Message) {
	r.mu.Lock()
	r.status.Name = r.name
	r.status.State = server.StateConnected
	r.status.SessionID = welcome.Session.ID
	r.status.ConnectedAt = welcome.Session.ConnectedAt
	r.status.LastMessageAt = welcome.Metadata.MessageTimestamp
	r.status.LastError = ""
	r.mu.Unlock()

	r.log.Event(context.Background(), model.EventConnected, "eventsub session connected",
		"target", r.name, "session_id", welcome.Session.ID)
}

// NotificationReceived implements eventsub.Sink.
func (r *Runner) NotificationReceived(msg *eventsub.Message) {
	r.notificationCount.Add(1)
	r.touchLastMessage(msg.Metadata.MessageTimestamp)

	r.log.Event(context.Background(), model.EventNotificationReceived, "notification received",
		"target", r.name, "subscription", msg.Metadata.SubscriptionType)

	if r.notify != nil {
		r.notify.Dispatch(context.Background(), model.EventNotificationReceived,
			r.name, "notification: "+msg.Metadata.SubscriptionType)
	}
}

// RevocationReceived implements eventsub.Sink.
func (r *Runner) RevocationReceived(msg *eventsub.Message) {
	r.touchLastMessage(msg.Metadata.MessageTimestamp)

	r.log.Event(context.Background(), model.EventRevocationReceived, "subscription revoked",
		"target", r.name, "subscription", msg.Metadata.SubscriptionType)

	if r.notify != nil {
		r.notify.Dispatch(context.Background(), model.EventRevocationReceived,
			r.name, "revoked: "+msg.Metadata.SubscriptionType)
	}
}

// ConnectionLost implements eventsub.Sink.
func (r *Runner) ConnectionLost(reason eventsub.DisconnectReason) {
	r.setState(server.StateReconnecting, reason.String())
	r.log.Event(context.Background(), model.EventConnectionLost, "eventsub session lost",
		"target", r.name, "reason", reason.String())

	if r.notify != nil {
		r.notify.Dispatch(context.Background(), model.EventConnectionLost, r.name, "connection lost: "+reason.String())
	}
}

// ChangeoverApplied implements eventsub.Sink.
func (r *Runner) ChangeoverApplied(newSessionID string) {
	r.changeoverCount.Add(1)

	r.mu.Lock()
	r.status.SessionID = newSessionID
	r.mu.Unlock()

	r.log.Event(context.Background(), model.EventChangeoverApplied, "eventsub endpoint changeover applied",
		"target", r.name, "session_id", newSessionID)
}

// MessageParsingFailed implements eventsub.Sink.
func (r *Runner) MessageParsingFailed(detail string) {
	r.log.Event(context.Background(), model.EventParsingFailed, "message parsing failed",
		"target", r.name, "detail", detail)
}

// UnknownMessageTypeReceived implements eventsub.Sink.
func (r *Runner) UnknownMessageTypeReceived(typeName string) {
	r.log.Event(context.Background(), model.EventUnknownMessageType, "unrecognized message type",
		"target", r.name, "type", typeName)
}

// UnknownSubscriptionTypeReceived implements eventsub.Sink.
func (r *Runner) UnknownSubscriptionTypeReceived(typeName string) {
	r.log.Event(context.Background(), model.EventUnknownSubscriptionType, "unrecognized subscription type",
		"target", r.name, "type", typeName)
}

func (r *Runner) touchLastMessage(t time.Time) {
	r.mu.Lock()
	r.status.LastMessageAt = t
	r.mu.Unlock()
}

var _ eventsub.Sink = (*Runner)(nil)
