package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Replacer swaps the public IP of the backing instance.
type Replacer interface {
	ReplaceIP(ctx context.Context) error
}

// Tracker watches per-domain connectivity reports for continuous outages.
// The first "down" report for a domain starts its outage clock; once a later
// "down" report arrives with the clock past the threshold, the instance IP
// is replaced and the clock restarts, so a domain that stays down keeps
// triggering replacements one threshold apart. Any "up" report clears the
// clock.
type Tracker struct {
	threshold time.Duration
	replacer  Replacer
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	downSince map[string]time.Time
}

func New(threshold time.Duration, r Replacer, logger *zap.Logger) *Tracker {
	return &Tracker{
		threshold: threshold,
		replacer:  r,
		logger:    logger,
		now:       time.Now,
		downSince: make(map[string]time.Time),
	}
}

// Observe records one report for the domain. Replacement happens on report
// arrival, never on a timer: a domain that goes silent does not trigger.
func (t *Tracker) Observe(ctx context.Context, domain string, down bool) {
	t.mu.Lock()
	if !down {
		delete(t.downSince, domain)
		t.mu.Unlock()
		return
	}

	start, ok := t.downSince[domain]
	if !ok {
		t.downSince[domain] = t.now()
		t.mu.Unlock()
		return
	}

	if t.now().Sub(start) < t.threshold {
		t.mu.Unlock()
		return
	}

	t.downSince[domain] = t.now()
	t.mu.Unlock()

	t.logger.Warn("domain down past threshold, replacing instance ip",
		zap.String("domain", domain),
		zap.Duration("threshold", t.threshold))

	if err := t.replacer.ReplaceIP(ctx); err != nil {
		t.logger.Error("replace instance ip", zap.Error(err))
	}
}

// Ages reports how long each currently-down domain has been down.
func (t *Tracker) Ages() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	ages := make(map[string]time.Duration, len(t.downSince))
	for domain, start := range t.downSince {
		ages[domain] = t.now().Sub(start)
	}
	return ages
}
