package listener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"cnlistener/internal/config"
	"cnlistener/internal/models"
)

// Handler receives every well-formed report read off the socket.
type Handler interface {
	HandleReport(ctx context.Context, report models.Report)
}

// Listener is the UDP server. It binds the configured port, reads datagrams
// in a loop and hands parsed reports to its Handler. Malformed datagrams are
// logged and dropped; they never stop the loop.
type Listener struct {
	port    int
	maxSize int
	handler Handler
	logger  *zap.Logger

	mu   sync.Mutex
	conn *net.UDPConn
}

func New(cfg config.ListenerConfig, h Handler, logger *zap.Logger) *Listener {
	return &Listener{
		port:    cfg.Port,
		maxSize: cfg.MaxDatagramSize,
		handler: h,
		logger:  logger,
	}
}

// Addr returns the bound address, or nil before Run has bound the socket.
// Mainly useful when the listener is configured with port 0.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Run binds the socket and serves until ctx is cancelled. A failed bind is
// returned to the supervisor; transient read errors back off one second.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: l.port})
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", l.port, err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	defer func() {
		conn.Close()
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
	}()

	l.logger.Info("udp listener started", zap.Int("port", l.port))

	// Unblock ReadFromUDP when the supervisor cancels us.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, l.maxSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Warn("udp read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		report, err := models.ParseReport(buf[:n])
		if err != nil {
			l.logger.Warn("invalid report",
				zap.String("from", addr.String()),
				zap.ByteString("data", buf[:n]),
				zap.Error(err))
			continue
		}

		report.SenderIP = addr.IP.String()
		report.SenderPort = addr.Port

		l.logger.Info("report received",
			zap.String("from", addr.String()),
			zap.String("domain", report.Domain),
			zap.String("protocol", report.Protocol),
			zap.String("connectivity", report.Connectivity))

		l.handler.HandleReport(ctx, report)
	}
}
