package config

// TargetConfig is the full configuration for a single watch target: one
// logical EventSub client connecting to one endpoint. It is loaded from a
// YAML file and optionally overlaid with environment variables for
// notification secrets.
type TargetConfig struct {
	Name string `yaml:"-"`

	Enabled *bool `yaml:"enabled,omitempty"`

	// URL overrides the default EventSub WebSocket endpoint. Empty means
	// use the production endpoint.
	URL string `yaml:"url,omitempty"`

	// KeepaliveSeconds requests a non-default keepalive interval from the
	// server. Zero means omit the request and let the server choose.
	KeepaliveSeconds int `yaml:"keepalive_seconds,omitempty"`

	// TolerateUnknownKinds relaxes the default "unrecognized post-welcome
	// message kind is fatal" behavior to a logged warning.
	TolerateUnknownKinds bool `yaml:"tolerate_unknown_kinds"`

	// Subscriptions lists the subscription type names this target expects
	// to receive notifications for. Nothing else in this program reads it,
	// and it does not itself create subscriptions — subscription
	// creation happens out-of-band through the Twitch API before the
	// WebSocket session connects.
	Subscriptions []string `yaml:"subscriptions"`

	Notifications NotificationsConfig `yaml:"notifications"`
}

// NotificationsConfig holds all notification provider configurations.
type NotificationsConfig struct {
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
	Discord  *DiscordConfig  `yaml:"discord,omitempty"`
	Webhook  *WebhookConfig  `yaml:"webhook,omitempty"`
	Matrix   *MatrixConfig   `yaml:"matrix,omitempty"`
	Pushover *PushoverConfig `yaml:"pushover,omitempty"`
	Gotify   *GotifyConfig   `yaml:"gotify,omitempty"`
}

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Token               string   `yaml:"token,omitempty"`
	ChatID              string   `yaml:"chat_id,omitempty"`
	Events              []string `yaml:"events"`
	DisableNotification bool     `yaml:"disable_notification"`
	MinSeverity         string   `yaml:"min_severity,omitempty"`
}

// DiscordConfig holds Discord notification settings.
type DiscordConfig struct {
	Enabled     bool     `yaml:"enabled"`
	WebhookURL  string   `yaml:"webhook_url,omitempty"`
	Events      []string `yaml:"events"`
	MinSeverity string   `yaml:"min_severity,omitempty"`
}

// WebhookConfig holds generic webhook notification settings.
type WebhookConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	Method      string   `yaml:"method"`
	Events      []string `yaml:"events"`
	MinSeverity string   `yaml:"min_severity,omitempty"`
}

// MatrixConfig holds Matrix notification settings.
type MatrixConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Homeserver  string   `yaml:"homeserver,omitempty"`
	RoomID      string   `yaml:"room_id,omitempty"`
	AccessToken string   `yaml:"access_token,omitempty"`
	Events      []string `yaml:"events"`
	MinSeverity string   `yaml:"min_severity,omitempty"`
}

// PushoverConfig holds Pushover notification settings.
type PushoverConfig struct {
	Enabled     bool     `yaml:"enabled"`
	UserKey     string   `yaml:"user_key,omitempty"`
	APIToken    string   `yaml:"api_token,omitempty"`
	Events      []string `yaml:"events"`
	MinSeverity string   `yaml:"min_severity,omitempty"`
}

// GotifyConfig holds Gotify notification settings.
type GotifyConfig struct {
	Enabled     bool     `yaml:"enabled"`
	URL         string   `yaml:"url,omitempty"`
	Token       string   `yaml:"token,omitempty"`
	Events      []string `yaml:"events"`
	MinSeverity string   `yaml:"min_severity,omitempty"`
}

// IsEnabled returns whether this target is enabled. Defaults to true when
// unset.
func (tc *TargetConfig) IsEnabled() bool {
	if tc.Enabled == nil {
		return true
	}
	return *tc.Enabled
}
