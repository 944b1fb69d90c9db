// Package notify provides notification dispatching to multiple providers
// (Telegram, Discord, Webhook, Matrix, Pushover, Gotify) based on event filtering.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Guliveer/twitch-eventsub-go/internal/config"
	"github.com/Guliveer/twitch-eventsub-go/internal/logger"
	"github.com/Guliveer/twitch-eventsub-go/internal/model"
)

// defaultHTTPTimeout is the timeout for notification HTTP requests.
const defaultHTTPTimeout = 5 * time.Second

// repeatCooldown bounds how often the same event kind can alert through a
// Dispatcher, which is always scoped to one watch target. A flapping
// connection can fire ConnectionLost dozens of times a minute; without this
// every one of those would page a phone.
const repeatCooldown = 30 * time.Second

// Notifier is the interface that all notification providers must implement.
type Notifier interface {
	Send(ctx context.Context, event model.Event, title, message string) error
	Name() string
	IsEnabled() bool
	ShouldNotify(event model.Event) bool
}

// Dispatcher manages multiple notifiers and dispatches notifications to all
// enabled notifiers that match the event.
type Dispatcher struct {
	notifiers []Notifier
	log       *logger.Logger

	mu       sync.Mutex
	lastSent map[model.Event]time.Time
}

// NewDispatcher creates a Dispatcher from the notification configuration.
// It initialises all configured and enabled notification providers.
func NewDispatcher(cfg config.NotificationsConfig, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{log: log, lastSent: make(map[model.Event]time.Time)}

	httpClient := &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	if cfg.Telegram != nil && cfg.Telegram.Enabled {
		d.notifiers = append(d.notifiers, &Telegram{
			baseNotifier:        newBase("Telegram", cfg.Telegram.Events, cfg.Telegram.MinSeverity),
			token:               cfg.Telegram.Token,
			chatID:              cfg.Telegram.ChatID,
			disableNotification: cfg.Telegram.DisableNotification,
			httpClient:          httpClient,
		})
	}

	if cfg.Discord != nil && cfg.Discord.Enabled {
		d.notifiers = append(d.notifiers, &Discord{
			baseNotifier: newBase("Discord", cfg.Discord.Events, cfg.Discord.MinSeverity),
			webhookURL:   cfg.Discord.WebhookURL,
			httpClient:   httpClient,
		})
	}

	if cfg.Webhook != nil && cfg.Webhook.Enabled {
		method := cfg.Webhook.Method
		if method == "" {
			method = http.MethodPost
		}
		d.notifiers = append(d.notifiers, &Webhook{
			baseNotifier: newBase("Webhook", cfg.Webhook.Events, cfg.Webhook.MinSeverity),
			url:          cfg.Webhook.Endpoint,
			method:       method,
			httpClient:   httpClient,
		})
	}

	if cfg.Matrix != nil && cfg.Matrix.Enabled {
		d.notifiers = append(d.notifiers, &Matrix{
			baseNotifier: newBase("Matrix", cfg.Matrix.Events, cfg.Matrix.MinSeverity),
			homeserver:   cfg.Matrix.Homeserver,
			accessToken:  cfg.Matrix.AccessToken,
			roomID:       cfg.Matrix.RoomID,
			httpClient:   httpClient,
		})
	}

	if cfg.Pushover != nil && cfg.Pushover.Enabled {
		d.notifiers = append(d.notifiers, &Pushover{
			baseNotifier: newBase("Pushover", cfg.Pushover.Events, cfg.Pushover.MinSeverity),
			token:        cfg.Pushover.APIToken,
			userKey:      cfg.Pushover.UserKey,
			httpClient:   httpClient,
		})
	}

	if cfg.Gotify != nil && cfg.Gotify.Enabled {
		d.notifiers = append(d.notifiers, &Gotify{
			baseNotifier: newBase("Gotify", cfg.Gotify.Events, cfg.Gotify.MinSeverity),
			url:          cfg.Gotify.URL,
			token:        cfg.Gotify.Token,
			httpClient:   httpClient,
		})
	}

	return d
}

// Dispatch sends a notification to all enabled notifiers that match the
// event, unless the same event fired again within repeatCooldown — a
// flapping reconnect loop raises ConnectionLost every backoff cycle, and
// without this every one of those would alert every configured provider.
// Critical-severity events (a revocation, which needs out-of-band action)
// always bypass the cooldown. Sends are non-blocking: each notifier runs in
// its own goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.Event, title, message string) {
	if !d.allow(event) {
		return
	}

	for _, n := range d.notifiers {
		if !n.IsEnabled() || !n.ShouldNotify(event) {
			continue
		}
		go func(notifier Notifier) {
			sendCtx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
			defer cancel()
			if err := notifier.Send(sendCtx, event, title, message); err != nil {
				d.log.Warn("notification send failed",
					"provider", notifier.Name(),
					"event", string(event),
					"error", err,
				)
			}
		}(n)
	}
}

// allow reports whether event is outside its repeat cooldown and records the
// attempt. Not a rate limiter in the general sense — it keys purely on the
// event kind, since a Dispatcher is already scoped to one watch target.
func (d *Dispatcher) allow(event model.Event) bool {
	if event.Severity() == model.SeverityCritical {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastSent[event]; ok && time.Since(last) < repeatCooldown {
		return false
	}
	d.lastSent[event] = time.Now()
	return true
}

// NotifyFunc returns a logger.NotifyFunc that dispatches notifications via this Dispatcher.
func (d *Dispatcher) NotifyFunc() logger.NotifyFunc {
	return func(ctx context.Context, message string, event model.Event) {
		d.Dispatch(ctx, event, "EventSub Watch", message)
	}
}

// HasNotifiers reports whether any notifiers are configured.
func (d *Dispatcher) HasNotifiers() bool {
	return len(d.notifiers) > 0
}

// parseEvents converts a slice of event name strings to model.Event values,
func parseEvents(names []string) []model.Event {
	events := make([]model.Event, 0, len(names))
	for _, name := range names {
		e := model.ParseEvent(name)
		if e != "" {
			events = append(events, e)
		}
	}
	return events
}

func containsEvent(events []model.Event, event model.Event) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}
