package eventsub

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/Guliveer/twitch-eventsub-go/internal/constants"
)

// session is the mutable state of one logical EventSub session. It is
// created once per Client.Connect call and exclusively owned by the
// session loop — the changeover coordinator only ever reads its inputs
// (a reconnect URL) and produces a Changeover value; it never touches this
// struct directly.
type session struct {
	socket           Socket
	keepaliveSeconds int
	lastMessageAt    time.Time
	welcomeReceived  bool
	seenIDs          *TTLSet
}

func (s *session) watchdogDeadline() time.Time {
	return s.lastMessageAt.
		Add(time.Duration(s.keepaliveSeconds) * time.Second).
		Add(constants.KeepaliveGrace)
}

// reset aborts and disposes the current socket and clears all per-session
// state, matching the spec's drop+reconstruct semantics for ownership-based
// languages: there is nothing left to reuse, the session loop returns
// immediately after calling this.
func (s *session) reset() {
	if s.socket != nil {
		_ = s.socket.Close(websocket.StatusNormalClosure, "")
	}
	s.socket = nil
	s.welcomeReceived = false
	s.seenIDs = nil
}

// readOutcome is what a per-socket read goroutine reports back to the loop.
type readOutcome struct {
	text string
	err  error
}

// runLoop multiplexes three waitables — the next message on the current
// socket, the keepalive watchdog, and a pending changeover — until the
// session ends. It returns a non-nil error for a protocol violation, a
// failed changeover dial, or a socket read error other than a peer close; a
// peer close or watchdog expiry returns nil after reporting itself through
// cfg.Sink, and cancellation returns nil without reporting anything.
func (c *Client) runLoop(ctx context.Context, st *session) error {
	socketCtx, cancelSocket := context.WithCancel(ctx)
	defer cancelSocket()

	readCh := make(chan readOutcome, 1)
	go c.readOne(socketCtx, st.socket, readCh)

	var changeoverCh <-chan changeoverResult
	var cancelChangeover context.CancelFunc
	defer func() {
		if cancelChangeover != nil {
			cancelChangeover()
		}
	}()

	for {
		waitDur := st.watchdogDeadline().Sub(c.cfg.Clock.Now())
		if waitDur < 0 {
			waitDur = 0
		}
		timer := c.cfg.Clock.NewTimer(waitDur)

		// Priority peek: a changeover that's already ready must never be
		// starved by a read or watchdog event arriving in the same
		// scheduling instant.
		if changeoverCh != nil {
			select {
			case res := <-changeoverCh:
				timer.Stop()
				changeoverCh = nil
				if cancelChangeover != nil {
					cancelChangeover()
					cancelChangeover = nil
				}
				if err := c.applyChangeover(ctx, st, res, &socketCtx, &cancelSocket, &readCh); err != nil {
					return err
				}
				continue
			default:
			}
		}

		select {
		case <-ctx.Done():
			timer.Stop()
			_ = st.socket.Close(websocket.StatusNormalClosure, "")
			return nil

		case res := <-changeoverCh:
			timer.Stop()
			changeoverCh = nil
			if cancelChangeover != nil {
				cancelChangeover()
				cancelChangeover = nil
			}
			if err := c.applyChangeover(ctx, st, res, &socketCtx, &cancelSocket, &readCh); err != nil {
				return err
			}

		case out := <-readCh:
			timer.Stop()
			done, err := c.handleRead(ctx, st, out, &changeoverCh, &cancelChangeover)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			go c.readOne(socketCtx, st.socket, readCh)

		case <-timer.C():
			st.reset()
			c.cfg.Sink.ConnectionLost(DisconnectKeepaliveTimeout)
			return nil
		}
	}
}

// readOne issues a single ReadMessage against socket and reports the
// outcome on ch, unless ctx was cancelled first (in which case the result
// is discarded — the loop has already moved on to a different socket or is
// tearing down).
func (c *Client) readOne(ctx context.Context, socket Socket, ch chan<- readOutcome) {
	text, err := socket.ReadMessage(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	ch <- readOutcome{text: text, err: err}
}

// applyChangeover takes the current socket aside, installs the new one from
// res, updates liveness bookkeeping from the new welcome, and closes the old
// socket with a normal-closure status. It never re-emits Connected — the
// session is logically continuous across a changeover.
func (c *Client) applyChangeover(ctx context.Context, st *session, res changeoverResult, socketCtx *context.Context, cancelSocket *context.CancelFunc, readCh *chan readOutcome) error {
	if res.err != nil {
		return res.err
	}

	if c.cfg.ChangeoverDrainDelay > 0 {
		select {
		case <-time.After(c.cfg.ChangeoverDrainDelay):
		case <-ctx.Done():
		}
	}

	(*cancelSocket)()
	_ = st.socket.Close(websocket.StatusNormalClosure, "")

	st.socket = res.changeover.Socket
	st.keepaliveSeconds = clampKeepalive(res.changeover.Welcome.Session.KeepaliveTimeoutSeconds)
	st.lastMessageAt = c.cfg.Clock.Now()

	newCtx, newCancel := context.WithCancel(ctx)
	*socketCtx = newCtx
	*cancelSocket = newCancel
	*readCh = make(chan readOutcome, 1)
	go c.readOne(newCtx, st.socket, *readCh)

	c.log.Info("eventsub changeover applied", "new_session_id", res.changeover.Welcome.Session.ID)
	c.cfg.Sink.ChangeoverApplied(res.changeover.Welcome.Session.ID)
	return nil
}

// handleRead applies a single read outcome under the spec's exact
// processing order: peer-close / transport error, replay-defense age
// check, dedup, liveness update, then dispatch by message kind. Returns
// done=true when the session has ended (ConnectionLost already emitted).
func (c *Client) handleRead(ctx context.Context, st *session, out readOutcome, changeoverCh *<-chan changeoverResult, cancelChangeover *context.CancelFunc) (done bool, err error) {
	if out.err != nil {
		if out.err == ErrPeerClosed {
			st.reset()
			c.cfg.Sink.ConnectionLost(DisconnectRemoteClosed)
			return true, nil
		}
		return false, fmt.Errorf("reading session message: %w", out.err)
	}

	result := c.cfg.Parser.Parse(out.text)
	switch result.Kind {
	case ParseInvalidMessage:
		c.cfg.Sink.MessageParsingFailed(result.Reason)
		return false, nil
	case ParseUnknownMessageType:
		c.cfg.Sink.UnknownMessageTypeReceived(result.TypeName)
		return false, nil
	case ParseUnknownSubscriptionType:
		c.cfg.Sink.UnknownSubscriptionTypeReceived(result.TypeName)
		return false, nil
	}

	msg := result.Message

	if msg.Metadata.MessageTimestamp.Before(c.cfg.Clock.Now().Add(-constants.MaxMessageAge)) {
		return false, violation(ReasonStaleMessage, fmt.Sprintf("message %s timestamped %s", msg.Metadata.MessageID, msg.Metadata.MessageTimestamp))
	}

	if !st.seenIDs.Add(msg.Metadata.MessageID) {
		return false, nil
	}
	st.lastMessageAt = msg.Metadata.MessageTimestamp

	switch msg.Metadata.MessageType {
	case MessageTypeSessionWelcome:
		if st.welcomeReceived {
			return false, violation(ReasonDuplicateWelcome, msg.Metadata.MessageID)
		}
		st.welcomeReceived = true
		st.keepaliveSeconds = clampKeepalive(msg.Session.KeepaliveTimeoutSeconds)
		c.cfg.Sink.Connected(msg)
		return false, nil

	case MessageTypeSessionKeepalive:
		if !st.welcomeReceived {
			return false, violation(ReasonPreWelcomeMessage, string(msg.Metadata.MessageType))
		}
		return false, nil

	case MessageTypeNotification:
		if !st.welcomeReceived {
			return false, violation(ReasonPreWelcomeMessage, string(msg.Metadata.MessageType))
		}
		c.cfg.Sink.NotificationReceived(msg)
		return false, nil

	case MessageTypeRevocation:
		if !st.welcomeReceived {
			return false, violation(ReasonPreWelcomeMessage, string(msg.Metadata.MessageType))
		}
		c.cfg.Sink.RevocationReceived(msg)
		return false, nil

	case MessageTypeSessionReconnect:
		if !st.welcomeReceived {
			return false, violation(ReasonPreWelcomeMessage, string(msg.Metadata.MessageType))
		}
		if msg.Session == nil || msg.Session.ReconnectURL == "" {
			return false, violation(ReasonReconnectMissingURL, msg.Metadata.MessageID)
		}
		changeoverParentCtx, cancel := context.WithCancel(ctx)
		*cancelChangeover = cancel
		*changeoverCh = armChangeover(changeoverParentCtx, c.cfg.Dialer, c.cfg.Parser, msg.Session.ReconnectURL)
		return false, nil

	default:
		if c.cfg.TolerateUnknownPostWelcomeKinds {
			c.cfg.Sink.MessageParsingFailed(fmt.Sprintf("unrecognized post-welcome message kind: %s", msg.Metadata.MessageType))
			return false, nil
		}
		return false, violation(ReasonUnrecognizedKind, string(msg.Metadata.MessageType))
	}
}

func clampKeepalive(seconds int) int {
	if seconds < constants.MinKeepaliveSeconds {
		return constants.MinKeepaliveSeconds
	}
	if seconds > constants.MaxKeepaliveSeconds {
		return constants.MaxKeepaliveSeconds
	}
	return seconds
}
