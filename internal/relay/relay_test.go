package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cnlistener/internal/models"
	"cnlistener/internal/webhook"
)

type fakeUpdater struct {
	updates []webhook.Update
	err     error
}

func (f *fakeUpdater) Send(ctx context.Context, u webhook.Update) error {
	f.updates = append(f.updates, u)
	return f.err
}

type fakeObserver struct {
	domains []string
	downs   []bool
}

func (f *fakeObserver) Observe(ctx context.Context, domain string, down bool) {
	f.domains = append(f.domains, domain)
	f.downs = append(f.downs, down)
}

func TestV4ReportForwarded(t *testing.T) {
	up := &fakeUpdater{}
	obs := &fakeObserver{}
	r := New(up, obs, zap.NewNop())

	r.HandleReport(context.Background(), models.Report{
		Domain:       "example.com",
		Protocol:     models.ProtocolV4,
		ReportedIP:   "203.0.113.7",
		Connectivity: "0",
		SenderIP:     "198.51.100.4",
	})

	require.Len(t, up.updates, 1)
	// The webhook gets the datagram's sender, not the reported address.
	assert.Equal(t, "198.51.100.4", up.updates[0].ClientIP)
	assert.Equal(t, "0", up.updates[0].Connectivity)
	assert.Equal(t, "example.com", up.updates[0].DomainName)

	require.Len(t, obs.domains, 1)
	assert.Equal(t, "example.com", obs.domains[0])
	assert.True(t, obs.downs[0])
}

func TestV4ReportObservedEvenWhenWebhookFails(t *testing.T) {
	up := &fakeUpdater{err: assert.AnError}
	obs := &fakeObserver{}
	r := New(up, obs, zap.NewNop())

	r.HandleReport(context.Background(), models.Report{
		Domain:       "example.com",
		Protocol:     models.ProtocolV4,
		Connectivity: "1",
		SenderIP:     "198.51.100.4",
	})

	require.Len(t, obs.domains, 1)
	assert.False(t, obs.downs[0])
}

func TestV6ReportIgnored(t *testing.T) {
	up := &fakeUpdater{}
	obs := &fakeObserver{}
	core, logs := observer.New(zapcore.InfoLevel)
	r := New(up, obs, zap.New(core))

	r.HandleReport(context.Background(), models.Report{
		Domain:   "example.com",
		Protocol: models.ProtocolV6,
	})

	assert.Empty(t, up.updates)
	assert.Empty(t, obs.domains)

	// Ignored v6 traffic stays visible at the default level.
	assert.Equal(t, 1, logs.FilterMessage("v6 report ignored").Len())
}

func TestUnknownProtocolIgnored(t *testing.T) {
	up := &fakeUpdater{}
	obs := &fakeObserver{}
	r := New(up, obs, zap.NewNop())

	r.HandleReport(context.Background(), models.Report{
		Domain:   "example.com",
		Protocol: "tcp",
	})

	assert.Empty(t, up.updates)
	assert.Empty(t, obs.domains)
}
