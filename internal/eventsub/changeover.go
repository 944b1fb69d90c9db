package eventsub

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// Changeover is the outcome of a successful endpoint migration: a new,
// already-welcomed socket the session loop takes ownership of. It is
// produced only after the new socket's first inbound message has been
// classified as a welcome.
type Changeover struct {
	Socket  Socket
	Welcome *Message
}

// changeoverResult is what the detached changeover goroutine sends back to
// the session loop.
type changeoverResult struct {
	changeover *Changeover
	err        error
}

// performChangeover opens a fresh socket to reconnectURL, reads exactly one
// message through parser, and succeeds only if that message is a
// session_welcome. The new socket is handed back, not swapped in — the
// caller (the session loop) decides when to apply it.
func performChangeover(ctx context.Context, dialer Dialer, parser Parser, reconnectURL string) (*Changeover, error) {
	sock, err := dialer.Dial(ctx, reconnectURL)
	if err != nil {
		return nil, fmt.Errorf("dialing changeover url %s: %w", reconnectURL, err)
	}

	text, err := sock.ReadMessage(ctx)
	if err != nil {
		_ = sock.Close(websocket.StatusProtocolError, "changeover failed")
		return nil, violation(ReasonReconnectWelcomeMissing, fmt.Sprintf("reading welcome on new socket: %v", err))
	}

	result := parser.Parse(text)
	if result.Kind != ParseOk {
		_ = sock.Close(websocket.StatusProtocolError, "changeover failed")
		return nil, violation(ReasonReconnectWelcomeMissing, fmt.Sprintf("parse result on new socket: %+v", result))
	}
	if !result.Message.IsSessionWelcome() {
		_ = sock.Close(websocket.StatusProtocolError, "changeover failed")
		return nil, violation(ReasonReconnectWelcomeMissing, fmt.Sprintf("expected session_welcome, got %s", result.Message.Metadata.MessageType))
	}

	return &Changeover{Socket: sock, Welcome: result.Message}, nil
}

// armChangeover launches performChangeover as a detached goroutine and
// returns a channel that receives exactly one changeoverResult. The
// goroutine is not bound to the session loop's per-socket read context —
// cancelling the outer ctx is the only thing that aborts it.
func armChangeover(ctx context.Context, dialer Dialer, parser Parser, reconnectURL string) <-chan changeoverResult {
	ch := make(chan changeoverResult, 1)
	go func() {
		changeover, err := performChangeover(ctx, dialer, parser, reconnectURL)
		ch <- changeoverResult{changeover: changeover, err: err}
	}()
	return ch
}
