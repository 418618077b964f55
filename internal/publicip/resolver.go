package publicip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cnlistener/internal/config"
)

// Resolver discovers the host's public addresses by asking a list of IP
// reflection services in order, falling back to the local routing address
// when none of them answer.
type Resolver struct {
	v4Services []string
	v6Services []string
	http       *http.Client
	logger     *zap.Logger
}

func NewResolver(cfg config.MonitorConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		v4Services: cfg.IPv4Services,
		v6Services: cfg.IPv6Services,
		http:       &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("service returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

// lookup returns the first non-empty answer from the service list, or "".
func (r *Resolver) lookup(ctx context.Context, services []string) string {
	for _, url := range services {
		ip, err := r.fetch(ctx, url)
		if err != nil {
			r.logger.Debug("ip lookup failed", zap.String("service", url), zap.Error(err))
			continue
		}
		if ip != "" {
			return ip
		}
	}
	return ""
}

// PublicIPv4 returns the public IPv4 address, the local IPv4 routing address
// when no reflection service answers, or "0.0.0.0" as a last resort.
func (r *Resolver) PublicIPv4(ctx context.Context) string {
	if ip := r.lookup(ctx, r.v4Services); ip != "" {
		return ip
	}
	return r.localAddr("udp4", "8.8.8.8:80", "0.0.0.0")
}

// PublicIPv6 is the IPv6 counterpart of PublicIPv4, falling back to "::".
func (r *Resolver) PublicIPv6(ctx context.Context) string {
	if ip := r.lookup(ctx, r.v6Services); ip != "" {
		return ip
	}
	return r.localAddr("udp6", "[2001:4860:4860::8888]:80", "::")
}

// localAddr discovers the local source address for the given destination.
// Dialing UDP sends no packets; it only selects a route.
func (r *Resolver) localAddr(network, dest, fallback string) string {
	conn, err := net.Dial(network, dest)
	if err != nil {
		r.logger.Debug("local address discovery failed", zap.Error(err))
		return fallback
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return fallback
	}
	return addr.IP.String()
}
