// Package health provides shared types for broker health check responses.
package health

// Response represents the broker health response structure.
//
// Liveness fills service and the uptime fields; readiness fills the session
// count. Both probes share the same envelope.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
		Sessions  int    `json:"sessions"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}
