package eventsub

import "testing"

func TestJSONParser_Parse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind ParseResultKind
	}{
		{
			name: "session welcome",
			raw: `{
				"metadata": {"message_id":"1","message_type":"session_welcome","message_timestamp":"2026-08-06T10:00:00.000000000Z"},
				"payload": {"session": {"id":"s1","status":"connected","keepalive_timeout_seconds":10,"connected_at":"2026-08-06T10:00:00.000000000Z"}}
			}`,
			wantKind: ParseOk,
		},
		{
			name: "session keepalive",
			raw: `{
				"metadata": {"message_id":"2","message_type":"session_keepalive","message_timestamp":"2026-08-06T10:00:10.000000000Z"},
				"payload": {}
			}`,
			wantKind: ParseOk,
		},
		{
			name: "session reconnect",
			raw: `{
				"metadata": {"message_id":"3","message_type":"session_reconnect","message_timestamp":"2026-08-06T10:00:20.000000000Z"},
				"payload": {"session": {"id":"s1","status":"reconnecting","keepalive_timeout_seconds":10,"reconnect_url":"wss://example/ws2","connected_at":"2026-08-06T10:00:00.000000000Z"}}
			}`,
			wantKind: ParseOk,
		},
		{
			name: "notification known subscription",
			raw: `{
				"metadata": {"message_id":"4","message_type":"notification","message_timestamp":"2026-08-06T10:00:30.000000000Z","subscription_type":"channel.follow","subscription_version":"1"},
				"payload": {"subscription": {"id":"sub1","status":"enabled","type":"channel.follow","version":"1","cost":0,"created_at":"2026-08-06T09:00:00.000000000Z"}, "event": {"user_id":"123"}}
			}`,
			wantKind: ParseOk,
		},
		{
			name: "notification unknown subscription",
			raw: `{
				"metadata": {"message_id":"5","message_type":"notification","message_timestamp":"2026-08-06T10:00:40.000000000Z","subscription_type":"channel.made_up"},
				"payload": {"subscription": {"id":"sub2","status":"enabled","type":"channel.made_up","version":"1","cost":0,"created_at":"2026-08-06T09:00:00.000000000Z"}, "event": {}}
			}`,
			wantKind: ParseUnknownSubscriptionType,
		},
		{
			name: "revocation",
			raw: `{
				"metadata": {"message_id":"6","message_type":"revocation","message_timestamp":"2026-08-06T10:00:50.000000000Z","subscription_type":"channel.follow"},
				"payload": {"subscription": {"id":"sub1","status":"authorization_revoked","type":"channel.follow","version":"1","cost":0,"created_at":"2026-08-06T09:00:00.000000000Z"}}
			}`,
			wantKind: ParseOk,
		},
		{
			name:     "unknown message type",
			raw:      `{"metadata": {"message_id":"7","message_type":"something_new","message_timestamp":"2026-08-06T10:01:00.000000000Z"},"payload":{}}`,
			wantKind: ParseUnknownMessageType,
		},
		{
			name:     "malformed json",
			raw:      `not json`,
			wantKind: ParseInvalidMessage,
		},
		{
			name:     "missing message id",
			raw:      `{"metadata": {"message_type":"session_keepalive","message_timestamp":"2026-08-06T10:01:00.000000000Z"},"payload":{}}`,
			wantKind: ParseInvalidMessage,
		},
		{
			name:     "bad timestamp",
			raw:      `{"metadata": {"message_id":"8","message_type":"session_keepalive","message_timestamp":"not-a-time"},"payload":{}}`,
			wantKind: ParseInvalidMessage,
		},
		{
			name:     "welcome missing session payload",
			raw:      `{"metadata": {"message_id":"9","message_type":"session_welcome","message_timestamp":"2026-08-06T10:01:00.000000000Z"},"payload":{}}`,
			wantKind: ParseInvalidMessage,
		},
	}

	parser := NewJSONParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(tt.raw)
			if result.Kind != tt.wantKind {
				t.Fatalf("Parse(%q) kind = %v, want %v (reason=%q)", tt.name, result.Kind, tt.wantKind, result.Reason)
			}
		})
	}
}

func TestJSONParser_ExtraSubscriptionTypes(t *testing.T) {
	parser := NewJSONParser("channel.made_up")
	raw := `{
		"metadata": {"message_id":"1","message_type":"notification","message_timestamp":"2026-08-06T10:00:00.000000000Z","subscription_type":"channel.made_up"},
		"payload": {"subscription": {"id":"sub1","status":"enabled","type":"channel.made_up","version":"1","cost":0,"created_at":"2026-08-06T09:00:00.000000000Z"}, "event": {}}
	}`

	result := parser.Parse(raw)
	if result.Kind != ParseOk {
		t.Fatalf("expected extra subscription type to be recognized, got kind=%v reason=%q", result.Kind, result.Reason)
	}
}

func TestMessage_IsSessionWelcome(t *testing.T) {
	welcome := &Message{Metadata: Metadata{MessageType: MessageTypeSessionWelcome}}
	if !welcome.IsSessionWelcome() {
		t.Fatalf("expected session_welcome message to report true")
	}

	keepalive := &Message{Metadata: Metadata{MessageType: MessageTypeSessionKeepalive}}
	if keepalive.IsSessionWelcome() {
		t.Fatalf("expected session_keepalive message to report false")
	}

	var nilMsg *Message
	if nilMsg.IsSessionWelcome() {
		t.Fatalf("expected nil message to report false")
	}
}
