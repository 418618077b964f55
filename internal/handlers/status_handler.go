package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IPSource exposes the last resolved public address.
type IPSource interface {
	CurrentIPv4() string
}

// OutageSource exposes how long each tracked domain has been down.
type OutageSource interface {
	Ages() map[string]time.Duration
}

type StatusResponse struct {
	PublicIPv4 string            `json:"public_ipv4"`
	Outages    map[string]string `json:"outages"`
}

// StatusHandler reports the service's current view of the world: the public
// address the monitor last resolved and the age of every active outage.
type StatusHandler struct {
	ips     IPSource
	outages OutageSource
	logger  *zap.Logger
}

func NewStatusHandler(ips IPSource, outages OutageSource, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{ips: ips, outages: outages, logger: logger}
}

func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ages := h.outages.Ages()
	outages := make(map[string]string, len(ages))
	for domain, age := range ages {
		outages[domain] = age.Round(time.Second).String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(StatusResponse{
		PublicIPv4: h.ips.CurrentIPv4(),
		Outages:    outages,
	}); err != nil {
		h.logger.Error("encode status response", zap.Error(err))
	}
}
