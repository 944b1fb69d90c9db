package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Guliveer/twitch-eventsub-go/internal/model"
)

// Discord sends notifications via a Discord webhook.
type Discord struct {
	baseNotifier
	webhookURL string
	httpClient *http.Client
}

// discordColor maps an event's severity to an embed sidebar color: Twitch
// purple for routine session activity, amber for a dropped/desynced
// connection, red for a revocation that needs a new subscription.
func discordColor(event model.Event) int {
	switch event.Severity() {
	case model.SeverityCritical:
		return 0xE04040
	case model.SeverityWarning:
		return 0xE0A030
	default:
		return 0x6441A5 // Twitch purple
	}
}

// Send posts an embed message to the configured Discord webhook.
func (d *Discord) Send(ctx context.Context, event model.Event, title, message string) error {
	payload := map[string]any{
		"username":   "EventSub Watch",
		"avatar_url": "https://i.imgur.com/X9fEkhT.png",
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": message,
				"color":       discordColor(event),
				"footer":      map[string]any{"text": string(event)},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}

	return nil
}
