package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Guliveer/twitch-eventsub-go/internal/utils"
)

func (s *StatusServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML) //nolint:errcheck
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	targets := s.getStatuses()
	connected := 0
	for _, t := range targets {
		if t.State == StateConnected {
			connected++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"connected_targets": connected,
		"total_targets":   len(targets),
		"targets":         targets,
	})
}

func (s *StatusServer) handleTargets(w http.ResponseWriter, _ *http.Request) {
	targets := s.getStatuses()
	views := make([]targetView, 0, len(targets))
	for _, t := range targets {
		views = append(views, targetView{
			TargetStatus:     t,
			NotificationsHuman: utils.Millify(int(t.NotificationCount), 1),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// targetView adds display-formatted fields to TargetStatus for the
// dashboard; the JSON API stays on TargetStatus's own field names via
// embedding.
type targetView struct {
	TargetStatus
	NotificationsHuman string `json:"notification_count_human"`
}

func (s *StatusServer) handleTarget(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing target name"})
		return
	}

	for _, t := range s.getStatuses() {
		if strings.ToLower(utils.Slugify(t.Name)) == name || strings.ToLower(t.Name) == name {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, errorResponse{Error: "target not found"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v) //nolint:errcheck
}

var dashboardHTML = []byte(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>EventSub Watch</title>
<meta http-equiv="refresh" content="5">
<style>
body { font-family: system-ui, sans-serif; background: #111; color: #eee; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { padding: 0.4rem 0.8rem; border-bottom: 1px solid #333; text-align: left; }
.connected { color: #3c3; }
.connecting, .reconnecting { color: #cc3; }
.dead { color: #c33; }
</style>
</head>
<body>
<h1>EventSub Watch</h1>
<p>Auto-refreshes every 5 seconds. JSON API at <code>/api/targets</code>.</p>
<table>
<thead><tr><th>Target</th><th>State</th><th>Session</th><th>Notifications</th><th>Changeovers</th><th>Last error</th></tr></thead>
<tbody id="rows"></tbody>
</table>
<script>
fetch('/api/targets').then(r => r.json()).then(targets => {
  const rows = document.getElementById('rows');
  for (const t of targets) {
    const tr = document.createElement('tr');
    tr.innerHTML = '<td>' + t.name + '</td>' +
      '<td class="' + t.state + '">' + t.state + '</td>' +
      '<td>' + (t.session_id || '') + '</td>' +
      '<td>' + (t.notification_count_human || t.notification_count || 0) + '</td>' +
      '<td>' + (t.changeover_count || 0) + '</td>' +
      '<td>' + (t.last_error || '') + '</td>';
    rows.appendChild(tr);
  }
});
</script>
</body>
</html>
`)
