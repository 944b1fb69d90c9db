package eventsub

import (
	"context"
	"errors"
	"sync"

	"github.com/coder/websocket"
)

var errNoMoreSockets = errors.New("fakeDialer: no more sockets queued")

// fakeSocket is an in-memory Socket driven by pushing strings onto msgs.
// Closing msgs (via closeFromPeer) makes ReadMessage return ErrPeerClosed,
// matching wsSocket's real behavior on a peer-initiated close.
type fakeSocket struct {
	msgs chan string

	mu         sync.Mutex
	closed     bool
	closeCode  websocket.StatusCode
	closeCalls int
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{msgs: make(chan string, 16)}
}

func (s *fakeSocket) push(text string) {
	s.msgs <- text
}

func (s *fakeSocket) closeFromPeer() {
	close(s.msgs)
}

func (s *fakeSocket) ReadMessage(ctx context.Context) (string, error) {
	select {
	case text, ok := <-s.msgs:
		if !ok {
			return "", ErrPeerClosed
		}
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeSocket) Close(code websocket.StatusCode, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeCode = code
	return nil
}

func (s *fakeSocket) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeDialer hands out pre-seeded sockets in FIFO order, regardless of the
// requested URL, recording every URL it was asked to dial.
type fakeDialer struct {
	mu      sync.Mutex
	queue   []*fakeSocket
	dialErr error
	dialed  []string
}

func newFakeDialer(sockets ...*fakeSocket) *fakeDialer {
	return &fakeDialer{queue: sockets}
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialed = append(d.dialed, url)

	if d.dialErr != nil {
		return nil, d.dialErr
	}
	if len(d.queue) == 0 {
		return nil, errNoMoreSockets
	}
	sock := d.queue[0]
	d.queue = d.queue[1:]
	return sock, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialed)
}
