package supervisor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cnlistener/internal/models"
)

func TestLogBufferBounded(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		lb.Add(models.LogEntry{Message: fmt.Sprintf("entry %d", i)})
	}

	entries := lb.GetLast(10)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 2", entries[0].Message)
	assert.Equal(t, "entry 4", entries[2].Message)
}

func TestLogBufferGetLast(t *testing.T) {
	lb := NewLogBuffer(10)
	for i := 0; i < 5; i++ {
		lb.Add(models.LogEntry{Message: fmt.Sprintf("entry %d", i)})
	}

	assert.Len(t, lb.GetLast(2), 2)
	assert.Empty(t, lb.GetLast(0))
	assert.Len(t, lb.GetLast(100), 5)
}

func TestLogBufferGetByUnit(t *testing.T) {
	lb := NewLogBuffer(10)
	lb.Add(models.LogEntry{Message: "a1", Unit: "a"})
	lb.Add(models.LogEntry{Message: "b1", Unit: "b"})
	lb.Add(models.LogEntry{Message: "a2", Unit: "a"})

	entries := lb.GetByUnit("a", 10)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].Message)
	assert.Equal(t, "a2", entries[1].Message)

	assert.Len(t, lb.GetByUnit("a", 1), 1)

	// No entries still serializes as an empty JSON array, not null.
	missing := lb.GetByUnit("missing", 10)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}
