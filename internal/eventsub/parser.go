package eventsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guliveer/twitch-eventsub-go/internal/jsonutil"
)

// ParseResultKind tags the outcome of decoding one reassembled text message.
type ParseResultKind int

const (
	// ParseOk means the message decoded into a well-formed Message.
	ParseOk ParseResultKind = iota
	// ParseInvalidMessage means the envelope was structurally malformed.
	ParseInvalidMessage
	// ParseUnknownMessageType means metadata.message_type was not recognized.
	ParseUnknownMessageType
	// ParseUnknownSubscriptionType means metadata.subscription_type was not recognized.
	ParseUnknownSubscriptionType
)

// ParseResult is the tagged outcome of Parser.Parse. Exactly one of Message,
// Reason, or TypeName is meaningful, selected by Kind.
type ParseResult struct {
	Kind     ParseResultKind
	Message  *Message
	Reason   string
	TypeName string
}

// Ok builds a successful ParseResult.
func Ok(msg *Message) ParseResult {
	return ParseResult{Kind: ParseOk, Message: msg}
}

// Invalid builds a ParseInvalidMessage result carrying a human-readable reason.
func Invalid(reason string) ParseResult {
	return ParseResult{Kind: ParseInvalidMessage, Reason: reason}
}

// UnknownType builds a ParseUnknownMessageType result naming the unrecognized type.
func UnknownType(name string) ParseResult {
	return ParseResult{Kind: ParseUnknownMessageType, TypeName: name}
}

// UnknownSubscription builds a ParseUnknownSubscriptionType result naming the
// unrecognized subscription type.
func UnknownSubscription(name string) ParseResult {
	return ParseResult{Kind: ParseUnknownSubscriptionType, TypeName: name}
}

// Parser decodes one reassembled text message into a ParseResult. Decoding
// an individual message's payload is explicitly out of the session core's
// scope — the core only ever consumes this interface.
type Parser interface {
	Parse(raw string) ParseResult
}

// wireEnvelope mirrors the JSON envelope Twitch sends over the EventSub
// WebSocket transport.
type wireEnvelope struct {
	Metadata struct {
		MessageID           string `json:"message_id"`
		MessageType         string `json:"message_type"`
		MessageTimestamp    string `json:"message_timestamp"`
		SubscriptionType    string `json:"subscription_type"`
		SubscriptionVersion string `json:"subscription_version"`
	} `json:"metadata"`
	Payload struct {
		Session *struct {
			ID                      string `json:"id"`
			Status                  string `json:"status"`
			KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
			ReconnectURL            string `json:"reconnect_url"`
			ConnectedAt             string `json:"connected_at"`
		} `json:"session"`
		Subscription *struct {
			ID        string         `json:"id"`
			Status    string         `json:"status"`
			Type      string         `json:"type"`
			Version   string         `json:"version"`
			Cost      json.Number    `json:"cost"`
			Condition map[string]any `json:"condition"`
			Transport map[string]any `json:"transport"`
			CreatedAt string         `json:"created_at"`
		} `json:"subscription"`
		Event map[string]any `json:"event"`
	} `json:"payload"`
}

// knownSubscriptionTypes is the set of subscription type names this default
// parser recognizes on notification/revocation messages. A production
// deployment typically widens this via NewJSONParser's variadic extra types
// as new subscription types are adopted.
var knownSubscriptionTypes = map[string]bool{
	"channel.update":                    true,
	"channel.follow":                    true,
	"channel.subscribe":                 true,
	"channel.subscription.gift":         true,
	"channel.subscription.message":      true,
	"channel.cheer":                     true,
	"channel.raid":                      true,
	"channel.ban":                       true,
	"channel.unban":                     true,
	"channel.moderate":                  true,
	"channel.channel_points_custom_reward_redemption.add": true,
	"channel.poll.begin":                true,
	"channel.poll.progress":             true,
	"channel.poll.end":                  true,
	"channel.prediction.begin":          true,
	"channel.prediction.progress":       true,
	"channel.prediction.lock":           true,
	"channel.prediction.end":            true,
	"channel.goal.begin":                true,
	"channel.goal.progress":             true,
	"channel.goal.end":                  true,
	"channel.hype_train.begin":          true,
	"channel.hype_train.progress":       true,
	"channel.hype_train.end":            true,
	"channel.shoutout.create":           true,
	"channel.shoutout.receive":          true,
	"channel.chat.message":              true,
	"channel.chat.notification":         true,
	"stream.online":                     true,
	"stream.offline":                    true,
	"user.authorization.grant":          true,
	"user.authorization.revoke":         true,
}

// JSONParser is the default Parser implementation, decoding the standard
// Twitch EventSub JSON envelope.
type JSONParser struct {
	subscriptionTypes map[string]bool
}

// NewJSONParser returns a JSONParser recognizing the built-in subscription
// types plus any extras supplied by the caller.
func NewJSONParser(extraSubscriptionTypes ...string) *JSONParser {
	types := make(map[string]bool, len(knownSubscriptionTypes)+len(extraSubscriptionTypes))
	for k := range knownSubscriptionTypes {
		types[k] = true
	}
	for _, t := range extraSubscriptionTypes {
		types[t] = true
	}
	return &JSONParser{subscriptionTypes: types}
}

// Parse decodes raw into a ParseResult.
func (p *JSONParser) Parse(raw string) ParseResult {
	var env wireEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Invalid(fmt.Sprintf("malformed envelope: %v", err))
	}

	if env.Metadata.MessageID == "" || env.Metadata.MessageType == "" {
		return Invalid("missing metadata.message_id or metadata.message_type")
	}

	ts, err := time.Parse(time.RFC3339Nano, env.Metadata.MessageTimestamp)
	if err != nil {
		return Invalid(fmt.Sprintf("malformed metadata.message_timestamp: %v", err))
	}

	meta := Metadata{
		MessageID:           env.Metadata.MessageID,
		MessageType:         MessageType(env.Metadata.MessageType),
		MessageTimestamp:    ts,
		SubscriptionType:    env.Metadata.SubscriptionType,
		SubscriptionVersion: env.Metadata.SubscriptionVersion,
	}

	switch meta.MessageType {
	case MessageTypeSessionWelcome, MessageTypeSessionReconnect:
		if env.Payload.Session == nil {
			return Invalid("session message missing payload.session")
		}
		session := &Session{
			ID:                      env.Payload.Session.ID,
			Status:                  env.Payload.Session.Status,
			KeepaliveTimeoutSeconds: env.Payload.Session.KeepaliveTimeoutSeconds,
			ReconnectURL:            env.Payload.Session.ReconnectURL,
		}
		if connectedAt, err := time.Parse(time.RFC3339Nano, env.Payload.Session.ConnectedAt); err == nil {
			session.ConnectedAt = connectedAt
		}
		return Ok(&Message{Metadata: meta, Session: session})

	case MessageTypeSessionKeepalive:
		return Ok(&Message{Metadata: meta})

	case MessageTypeNotification, MessageTypeRevocation:
		if env.Payload.Subscription == nil {
			return Invalid("notification/revocation missing payload.subscription")
		}
		if !p.subscriptionTypes[env.Payload.Subscription.Type] {
			return UnknownSubscription(env.Payload.Subscription.Type)
		}
		sub := &Subscription{
			ID:        env.Payload.Subscription.ID,
			Status:    env.Payload.Subscription.Status,
			Type:      env.Payload.Subscription.Type,
			Version:   env.Payload.Subscription.Version,
			Cost:      jsonutil.IntFromAny(env.Payload.Subscription.Cost),
			Condition: env.Payload.Subscription.Condition,
			Transport: env.Payload.Subscription.Transport,
		}
		if createdAt, err := time.Parse(time.RFC3339Nano, env.Payload.Subscription.CreatedAt); err == nil {
			sub.CreatedAt = createdAt
		}
		return Ok(&Message{Metadata: meta, Subscription: sub, Event: env.Payload.Event})

	default:
		return UnknownType(string(meta.MessageType))
	}
}
