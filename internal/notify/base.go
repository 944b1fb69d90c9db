package notify

import "github.com/Guliveer/twitch-eventsub-go/internal/model"

// baseNotifier provides shared boilerplate for all notification providers.
// Embed it in concrete notifier structs to eliminate duplicated Name(),
// IsEnabled(), and ShouldNotify() implementations.
type baseNotifier struct {
	name        string
	enabled     bool
	events      []model.Event
	minSeverity model.Severity
}

// newBase builds a baseNotifier for an enabled provider from its raw config
// fields.
func newBase(name string, events []string, minSeverity string) baseNotifier {
	return baseNotifier{
		name:        name,
		enabled:     true,
		events:      parseEvents(events),
		minSeverity: model.ParseSeverity(minSeverity),
	}
}

// Name returns the human-readable name of the notifier.
func (b *baseNotifier) Name() string { return b.name }

// IsEnabled reports whether this notifier is active.
func (b *baseNotifier) IsEnabled() bool { return b.enabled }

// ShouldNotify reports whether this notifier should fire for the given
// event: it must be in the configured event list, and its severity must
// meet the notifier's min_severity floor. A target that wires Telegram for
// quick pings but Pushover only for things worth waking up for sets
// min_severity per-provider rather than per-event-list.
func (b *baseNotifier) ShouldNotify(event model.Event) bool {
	return containsEvent(b.events, event) && event.Severity() >= b.minSeverity
}
