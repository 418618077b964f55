package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cnlistener/internal/config"
	"cnlistener/internal/webhook"
)

// IPSource resolves the host's current public IPv4 address.
type IPSource interface {
	PublicIPv4(ctx context.Context) string
}

// Updater posts connectivity updates upstream.
type Updater interface {
	Send(ctx context.Context, u webhook.Update) error
}

// Monitor polls the host's public IPv4 address and pushes an update for the
// configured server domain on the first resolution and on every change.
type Monitor struct {
	interval time.Duration
	domain   string
	source   IPSource
	updater  Updater
	logger   *zap.Logger

	mu     sync.Mutex
	lastV4 string
}

func New(cfg config.MonitorConfig, source IPSource, updater Updater, logger *zap.Logger) *Monitor {
	return &Monitor{
		interval: cfg.Interval(),
		domain:   cfg.Domain,
		source:   source,
		updater:  updater,
		logger:   logger,
	}
}

// CurrentIPv4 is the last resolved public address, "" before the first poll.
func (m *Monitor) CurrentIPv4() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastV4
}

// Run polls immediately and then once per interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	ip := m.source.PublicIPv4(ctx)
	if ip == "" {
		return
	}

	m.mu.Lock()
	first := m.lastV4 == ""
	changed := !first && ip != m.lastV4
	previous := m.lastV4
	m.lastV4 = ip
	m.mu.Unlock()

	if !first && !changed {
		return
	}

	if first {
		m.logger.Info("initial public ip", zap.String("ip", ip))
	} else {
		m.logger.Info("public ip changed",
			zap.String("from", previous),
			zap.String("to", ip))
	}

	if err := m.updater.Send(ctx, webhook.Update{
		ClientIP:     ip,
		Connectivity: "1",
		DomainName:   m.domain,
	}); err != nil {
		m.logger.Error("public ip update failed", zap.Error(err))
	}
}
