package eventsub

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/coder/websocket"

	"github.com/Guliveer/twitch-eventsub-go/internal/constants"
)

// ErrPeerClosed is returned by Socket.ReadMessage when the peer sent a
// close frame before any read error occurred.
var ErrPeerClosed = errors.New("eventsub: peer closed the connection")

// ErrNonTextFrame is returned (wrapped) by Socket.ReadMessage when the peer
// sent a binary frame or a text frame that is not valid UTF-8; the EventSub
// transport only ever uses text frames.
var ErrNonTextFrame = errors.New("eventsub: received non-text frame")

// Socket is the session loop's view of a single WebSocket connection. It
// owns frame reassembly: ReadMessage blocks until a complete UTF-8 text
// message has arrived, the peer closed the connection, or ctx is done.
type Socket interface {
	// ReadMessage returns the next reassembled text message, ErrPeerClosed
	// if the peer sent a close frame (with any status code), or a wrapped
	// error otherwise.
	ReadMessage(ctx context.Context) (string, error)
	// Close sends a close frame with the given code and reason. Calling
	// Close more than once is safe and a no-op after the first call.
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a new Socket to a WebSocket endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// wsDialer is the production Dialer, backed by github.com/coder/websocket.
type wsDialer struct{}

// NewDialer returns the production Dialer.
func NewDialer() Dialer { return wsDialer{} }

func (wsDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	conn.SetReadLimit(constants.DefaultReadLimit)
	return &wsSocket{conn: conn}, nil
}

// wsSocket reassembles WebSocket frames into complete text messages. The
// underlying library concatenates frame payloads internally; this type is
// the Reassembler the session loop depends on — it adds the protocol-level
// policy the spec requires on top of a single Read: text-frame enforcement,
// BOM-free UTF-8 decoding, and an explicit normal-closure response to a
// peer-initiated close (rather than relying solely on the library's own
// close handling).
type wsSocket struct {
	conn   *websocket.Conn
	closed bool
}

func (s *wsSocket) ReadMessage(ctx context.Context) (string, error) {
	typ, data, err := s.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			_ = s.Close(websocket.StatusNormalClosure, "")
			return "", ErrPeerClosed
		}
		return "", fmt.Errorf("reading message: %w", err)
	}

	if typ != websocket.MessageText {
		return "", fmt.Errorf("%w: got %v", ErrNonTextFrame, typ)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid utf-8 text frame", ErrNonTextFrame)
	}

	return stripBOM(string(data)), nil
}

func (s *wsSocket) Close(code websocket.StatusCode, reason string) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(code, reason)
}

// stripBOM removes a leading UTF-8 byte-order mark, if present, so decoded
// text never carries one even if the peer emitted it.
func stripBOM(s string) string {
	const bom = "\xEF\xBB\xBF"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
