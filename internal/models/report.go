package models

import (
	"errors"
	"strings"
)

// Protocol values carried in the second field of a report.
const (
	ProtocolV4 = "v4"
	ProtocolV6 = "v6"
)

// ErrShortReport is returned when a datagram carries fewer than the four
// required fields.
var ErrShortReport = errors.New("report has fewer than 4 fields")

// Report is a single connectivity datagram as sent by remote probes, in the
// wire format "domain,protocol,reported_ip,connectivity". Fields past the
// fourth are tolerated and ignored. SenderIP and SenderPort are filled in
// from the datagram's source address, not from the payload.
type Report struct {
	Domain       string `json:"domain"`
	Protocol     string `json:"protocol"`
	ReportedIP   string `json:"reported_ip"`
	Connectivity string `json:"connectivity"`
	SenderIP     string `json:"sender_ip"`
	SenderPort   int    `json:"sender_port"`
}

// ParseReport decodes the CSV wire format. Leading and trailing whitespace
// around the whole message is stripped; the protocol field is lowercased.
func ParseReport(data []byte) (Report, error) {
	fields := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(fields) < 4 {
		return Report{}, ErrShortReport
	}

	return Report{
		Domain:       fields[0],
		Protocol:     strings.ToLower(fields[1]),
		ReportedIP:   fields[2],
		Connectivity: fields[3],
	}, nil
}

// Down reports whether the probe saw no connectivity for the domain.
func (r Report) Down() bool {
	return r.Connectivity == "0"
}
