package models

// Unit is a point-in-time snapshot of a supervised unit.
type Unit struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Restarts int    `json:"restarts"`
	Uptime   string `json:"uptime"`
}

// LogEntry represents a log entry kept in the supervisor's in-memory ring.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Level     string `json:"level"`
	Unit      string `json:"unit,omitempty"`
}
