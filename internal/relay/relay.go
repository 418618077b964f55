package relay

import (
	"context"

	"go.uber.org/zap"

	"cnlistener/internal/models"
	"cnlistener/internal/webhook"
)

// Updater posts connectivity updates to the domain update endpoint.
type Updater interface {
	Send(ctx context.Context, u webhook.Update) error
}

// Observer records connectivity observations for outage tracking.
type Observer interface {
	Observe(ctx context.Context, domain string, down bool)
}

// Relay routes parsed reports: v4 reports go to the update webhook and the
// outage tracker, v6 reports are acknowledged and dropped, anything else is
// logged as unknown. The client address sent upstream is the datagram's
// sender, not the address the probe reported.
type Relay struct {
	updater Updater
	tracker Observer
	logger  *zap.Logger
}

func New(u Updater, t Observer, logger *zap.Logger) *Relay {
	return &Relay{updater: u, tracker: t, logger: logger}
}

func (r *Relay) HandleReport(ctx context.Context, report models.Report) {
	switch report.Protocol {
	case models.ProtocolV4:
		if err := r.updater.Send(ctx, webhook.Update{
			ClientIP:     report.SenderIP,
			Connectivity: report.Connectivity,
			DomainName:   report.Domain,
		}); err != nil {
			r.logger.Error("webhook update failed",
				zap.String("domain", report.Domain),
				zap.Error(err))
		}
		r.tracker.Observe(ctx, report.Domain, report.Down())
	case models.ProtocolV6:
		r.logger.Info("v6 report ignored", zap.String("domain", report.Domain))
	default:
		r.logger.Warn("unknown protocol", zap.String("protocol", report.Protocol))
	}
}
