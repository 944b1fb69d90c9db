package eventsub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)

func ts(offset time.Duration) string {
	return baseTime.Add(offset).Format(time.RFC3339Nano)
}

func welcomeJSON(id, sessionID string, keepaliveSeconds int, offset time.Duration) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id":%q,"message_type":"session_welcome","message_timestamp":%q},
		"payload": {"session": {"id":%q,"status":"connected","keepalive_timeout_seconds":%d,"connected_at":%q}}
	}`, id, ts(offset), sessionID, keepaliveSeconds, ts(offset))
}

func keepaliveJSON(id string, offset time.Duration) string {
	return fmt.Sprintf(`{"metadata": {"message_id":%q,"message_type":"session_keepalive","message_timestamp":%q},"payload":{}}`, id, ts(offset))
}

func notificationJSON(id, subType string, offset time.Duration) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id":%q,"message_type":"notification","message_timestamp":%q,"subscription_type":%q,"subscription_version":"1"},
		"payload": {"subscription": {"id":"sub1","status":"enabled","type":%q,"version":"1","cost":0,"created_at":%q}, "event": {"user_id":"123"}}
	}`, id, ts(offset), subType, subType, ts(offset))
}

func reconnectJSON(id, sessionID, reconnectURL string, offset time.Duration) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id":%q,"message_type":"session_reconnect","message_timestamp":%q},
		"payload": {"session": {"id":%q,"status":"reconnecting","keepalive_timeout_seconds":10,"reconnect_url":%q,"connected_at":%q}}
	}`, id, ts(offset), sessionID, reconnectURL, ts(offset))
}

func newTestClient(t *testing.T, dialer Dialer, clock Clock, sink Sink) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Dialer: dialer,
		Clock:  clock,
		Parser: NewJSONParser(),
		Sink:   sink,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClient_HappyPath(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, 0))
	sock.push(notificationJSON("2", "channel.follow", time.Second))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	if !waitUntil(func() bool { return sink.connectedCount() == 1 }, time.Second) {
		t.Fatalf("expected Connected to fire")
	}
	if !waitUntil(func() bool { return sink.notificationCount() == 1 }, time.Second) {
		t.Fatalf("expected NotificationReceived to fire")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after cancellation")
	}
}

func TestClient_DuplicateNotificationIsSuppressed(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, 0))
	sock.push(notificationJSON("dup", "channel.follow", time.Second))
	sock.push(notificationJSON("dup", "channel.follow", 2*time.Second))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	if !waitUntil(func() bool { return sink.connectedCount() == 1 }, time.Second) {
		t.Fatalf("expected Connected to fire")
	}
	if !waitUntil(func() bool { return sink.notificationCount() == 1 }, time.Second) {
		t.Fatalf("expected NotificationReceived to fire once")
	}

	// Give the second, duplicate-id notification a chance to be read and
	// suppressed before asserting the count never climbs past one.
	time.Sleep(50 * time.Millisecond)
	if sink.notificationCount() != 1 {
		t.Fatalf("expected duplicate notification id to be suppressed, got %d deliveries", sink.notificationCount())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after cancellation")
	}
}

func TestClient_KeepaliveTimeout(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 10, 0))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	if !waitUntil(func() bool { return sink.connectedCount() == 1 }, time.Second) {
		t.Fatalf("expected Connected to fire")
	}
	if !waitUntil(func() bool { return clock.NumTimers() >= 1 }, time.Second) {
		t.Fatalf("expected watchdog timer to be armed")
	}

	// keepalive(10s) + grace(3s) = 13s until the watchdog fires.
	clock.Advance(14 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on keepalive timeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after watchdog should have fired")
	}

	if sink.lostCount() != 1 || sink.lastLost() != DisconnectKeepaliveTimeout {
		t.Fatalf("expected exactly one keepalive-timeout ConnectionLost, got %v", sink.lost)
	}
	if !sock.wasClosed() {
		t.Fatalf("expected the timed-out socket to be closed")
	}
}

func TestClient_SeamlessChangeover(t *testing.T) {
	sock1 := newFakeSocket()
	sock1.push(welcomeJSON("1", "sess-1", 30, 0))
	sock1.push(reconnectJSON("2", "sess-1", "wss://example/ws2", time.Second))

	sock2 := newFakeSocket()
	sock2.push(welcomeJSON("3", "sess-2", 30, 2*time.Second))
	sock2.push(notificationJSON("4", "channel.follow", 3*time.Second))

	dialer := newFakeDialer(sock1, sock2)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	if !waitUntil(func() bool { return sink.changeoverCount() == 1 }, time.Second) {
		t.Fatalf("expected exactly one changeover to apply")
	}
	if !waitUntil(func() bool { return sink.notificationCount() == 1 }, time.Second) {
		t.Fatalf("expected the notification on the new socket to be delivered")
	}
	if sink.connectedCount() != 1 {
		t.Fatalf("expected Connected to fire only once across the changeover, got %d", sink.connectedCount())
	}
	if !waitUntil(func() bool { return sock1.wasClosed() }, time.Second) {
		t.Fatalf("expected the old socket to be retired after changeover")
	}
	if dialer.dialCount() != 2 {
		t.Fatalf("expected exactly two dials (initial + changeover), got %d", dialer.dialCount())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after cancellation")
	}
}

func TestClient_StaleMessageIsAProtocolViolation(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, 0))
	sock.push(notificationJSON("2", "channel.follow", -11*time.Minute))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	err := client.Connect(context.Background())

	var violation *ProtocolViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected a ProtocolViolation, got %v", err)
	}
	if violation.Reason != ReasonStaleMessage {
		t.Fatalf("expected reason %q, got %q", ReasonStaleMessage, violation.Reason)
	}
}

func TestClient_StaleInitialWelcomeIsAProtocolViolation(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, -11*time.Minute))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	err := client.Connect(context.Background())

	var violation *ProtocolViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected a ProtocolViolation, got %v", err)
	}
	if violation.Reason != ReasonStaleMessage {
		t.Fatalf("expected reason %q, got %q", ReasonStaleMessage, violation.Reason)
	}
	if sink.connectedCount() != 0 {
		t.Fatalf("expected Connected to never fire for a stale initial welcome")
	}
}

func TestClient_InitialConnectionMustOpenWithWelcome(t *testing.T) {
	sock := newFakeSocket()
	sock.push(keepaliveJSON("1", 0))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	err := client.Connect(context.Background())

	var violation *ProtocolViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected a ProtocolViolation, got %v", err)
	}
	if violation.Reason != ReasonPreWelcomeMessage {
		t.Fatalf("expected reason %q, got %q", ReasonPreWelcomeMessage, violation.Reason)
	}
	if sink.connectedCount() != 0 {
		t.Fatalf("expected Connected to never fire")
	}
}

func TestClient_TolerantOfMalformedMessages(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, 0))
	sock.push("not json at all")
	sock.push(notificationJSON("2", "channel.follow", time.Second))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Connect(ctx) }()

	if !waitUntil(func() bool { return sink.parseFailureCount() == 1 }, time.Second) {
		t.Fatalf("expected exactly one MessageParsingFailed")
	}
	if !waitUntil(func() bool { return sink.notificationCount() == 1 }, time.Second) {
		t.Fatalf("expected the session to keep processing after the malformed message")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after cancellation")
	}
}

func TestClient_RemoteCloseIsNotAnError(t *testing.T) {
	sock := newFakeSocket()
	sock.push(welcomeJSON("1", "sess-1", 30, 0))

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}
	client := newTestClient(t, dialer, clock, sink)

	done := make(chan error, 1)
	go func() { done <- client.Connect(context.Background()) }()

	if !waitUntil(func() bool { return sink.connectedCount() == 1 }, time.Second) {
		t.Fatalf("expected Connected to fire")
	}

	sock.closeFromPeer()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on remote close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after remote close")
	}

	if sink.lostCount() != 1 || sink.lastLost() != DisconnectRemoteClosed {
		t.Fatalf("expected exactly one remote-disconnect ConnectionLost, got %v", sink.lost)
	}
}

func TestClient_RequestedKeepaliveSizesPreWelcomeWatchdog(t *testing.T) {
	sock := newFakeSocket() // never pushes a welcome

	dialer := newFakeDialer(sock)
	clock := newTestClock(baseTime)
	sink := &fakeSink{}

	requested := 10
	client, err := NewClient(Config{
		Dialer:                  dialer,
		Clock:                   clock,
		Parser:                  NewJSONParser(),
		Sink:                    sink,
		KeepaliveTimeoutSeconds: &requested,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- client.Connect(context.Background()) }()

	if !waitUntil(func() bool { return clock.NumTimers() >= 1 }, time.Second) {
		t.Fatalf("expected the pre-welcome watchdog timer to be armed")
	}

	// keepalive(10s) + grace(3s) = 13s until the watchdog fires. If the
	// pre-welcome watchdog were still sized off the 600s default, this
	// advance would leave the loop waiting indefinitely.
	clock.Advance(14 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Connect to return nil on keepalive timeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect did not return after the pre-welcome watchdog should have fired")
	}

	if sink.connectedCount() != 0 {
		t.Fatalf("expected Connected to never fire — no welcome ever arrived")
	}
	if sink.lostCount() != 1 || sink.lastLost() != DisconnectKeepaliveTimeout {
		t.Fatalf("expected exactly one keepalive-timeout ConnectionLost, got %v", sink.lost)
	}
}

func TestClient_KeepaliveClampedToConfiguredRange(t *testing.T) {
	if got := clampKeepalive(1); got != 10 {
		t.Fatalf("expected keepalive below minimum to clamp to 10, got %d", got)
	}
	if got := clampKeepalive(10000); got != 600 {
		t.Fatalf("expected keepalive above maximum to clamp to 600, got %d", got)
	}
	if got := clampKeepalive(120); got != 120 {
		t.Fatalf("expected in-range keepalive to pass through unchanged, got %d", got)
	}
}
