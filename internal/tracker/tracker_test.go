package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeReplacer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReplacer) ReplaceIP(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeReplacer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestTracker(threshold time.Duration, r Replacer) (*Tracker, *time.Time) {
	trk := New(threshold, r, zap.NewNop())
	now := time.Now()
	trk.now = func() time.Time { return now }
	return trk, &now
}

func TestFirstDownReportStartsClock(t *testing.T) {
	rep := &fakeReplacer{}
	trk, _ := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)

	assert.Equal(t, 0, rep.count())
	assert.Contains(t, trk.Ages(), "example.com")
}

func TestBelowThresholdDoesNotReplace(t *testing.T) {
	rep := &fakeReplacer{}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(4 * time.Minute)
	trk.Observe(context.Background(), "example.com", true)

	assert.Equal(t, 0, rep.count())
}

func TestPastThresholdReplacesAndResets(t *testing.T) {
	rep := &fakeReplacer{}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(5 * time.Minute)
	trk.Observe(context.Background(), "example.com", true)

	assert.Equal(t, 1, rep.count())

	// The clock restarted: another report just after must not fire again.
	*now = now.Add(time.Minute)
	trk.Observe(context.Background(), "example.com", true)
	assert.Equal(t, 1, rep.count())

	// A full threshold later it fires again.
	*now = now.Add(5 * time.Minute)
	trk.Observe(context.Background(), "example.com", true)
	assert.Equal(t, 2, rep.count())
}

func TestUpReportClearsClock(t *testing.T) {
	rep := &fakeReplacer{}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(4 * time.Minute)
	trk.Observe(context.Background(), "example.com", false)

	assert.Empty(t, trk.Ages())

	// The outage window starts over after recovery.
	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(4 * time.Minute)
	trk.Observe(context.Background(), "example.com", true)
	assert.Equal(t, 0, rep.count())
}

func TestDomainsTrackedIndependently(t *testing.T) {
	rep := &fakeReplacer{}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "a.example.com", true)
	*now = now.Add(3 * time.Minute)
	trk.Observe(context.Background(), "b.example.com", true)
	*now = now.Add(2 * time.Minute)

	// a has been down 5m, b only 2m.
	trk.Observe(context.Background(), "a.example.com", true)
	assert.Equal(t, 1, rep.count())
	trk.Observe(context.Background(), "b.example.com", true)
	assert.Equal(t, 1, rep.count())
}

func TestReplacerErrorDoesNotResetState(t *testing.T) {
	rep := &fakeReplacer{err: assert.AnError}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(5 * time.Minute)
	trk.Observe(context.Background(), "example.com", true)

	assert.Equal(t, 1, rep.count())
	assert.Contains(t, trk.Ages(), "example.com")
}

func TestAges(t *testing.T) {
	rep := &fakeReplacer{}
	trk, now := newTestTracker(5*time.Minute, rep)

	trk.Observe(context.Background(), "example.com", true)
	*now = now.Add(90 * time.Second)

	ages := trk.Ages()
	assert.Equal(t, 90*time.Second, ages["example.com"])
}
