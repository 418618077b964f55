package supervisor

import (
	"sync"

	"cnlistener/internal/models"
)

// LogBuffer is a bounded in-memory ring of supervisor log entries, served
// over the HTTP API.
type LogBuffer struct {
	mu         sync.RWMutex
	entries    []models.LogEntry
	maxEntries int
}

func NewLogBuffer(maxEntries int) *LogBuffer {
	return &LogBuffer{
		entries:    make([]models.LogEntry, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

func (lb *LogBuffer) Add(entry models.LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.entries = append(lb.entries, entry)
	if len(lb.entries) > lb.maxEntries {
		lb.entries = lb.entries[len(lb.entries)-lb.maxEntries:]
	}
}

func (lb *LogBuffer) GetLast(n int) []models.LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n <= 0 || len(lb.entries) == 0 {
		return []models.LogEntry{}
	}

	start := 0
	if len(lb.entries) > n {
		start = len(lb.entries) - n
	}

	result := make([]models.LogEntry, len(lb.entries[start:]))
	copy(result, lb.entries[start:])
	return result
}

func (lb *LogBuffer) GetByUnit(unit string, n int) []models.LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	filtered := []models.LogEntry{}
	for _, e := range lb.entries {
		if e.Unit == unit {
			filtered = append(filtered, e)
		}
	}

	if n <= 0 || len(filtered) == 0 {
		return filtered
	}

	start := 0
	if len(filtered) > n {
		start = len(filtered) - n
	}

	return filtered[start:]
}
