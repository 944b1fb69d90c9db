package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Guliveer/twitch-eventsub-go/internal/model"
)

// Pushover sends notifications via the Pushover API.
type Pushover struct {
	baseNotifier
	token      string
	userKey    string
	httpClient *http.Client
}

// pushoverPriority maps an event's severity to Pushover's -2..2 priority
// scale. Critical (a revocation) uses high priority (1), which bypasses a
// user's quiet hours; warnings use normal priority (0); routine session
// activity uses low priority (-1), which is delivered without a sound.
func pushoverPriority(event model.Event) string {
	switch event.Severity() {
	case model.SeverityCritical:
		return "1"
	case model.SeverityWarning:
		return "0"
	default:
		return "-1"
	}
}

// Send posts a notification to the Pushover API.
func (p *Pushover) Send(ctx context.Context, event model.Event, title, message string) error {
	form := url.Values{
		"token":    {p.token},
		"user":     {p.userKey},
		"title":    {title},
		"message":  {message},
		"priority": {pushoverPriority(event)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.pushover.net/1/messages.json",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushover: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("pushover: unexpected status %d", resp.StatusCode)
	}

	return nil
}
