package node

import (
	"context"
	"net"
	"time"

	"github.com/beevik/ntp"
)

// DefaultNTPChecker returns the NTPChecker New uses when Config.NTP is nil,
// exported so callers can run CheckClockSkew before constructing a Node.
func DefaultNTPChecker() NTPChecker { return ntpChecker{} }

// ntpChecker is the default NTPChecker, backed by an NTP client query —
// grounded the same way the pack's own agents check clock skew before
// trusting local timestamps.
type ntpChecker struct{}

func (ntpChecker) Offset(ctx context.Context, server string) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: 5 * time.Second})
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// ipDiscoverer is the default IPDiscoverer: it dials a UDP socket to a
// public address without sending anything, which is enough for the kernel
// to pick the outward-facing interface and source address.
type ipDiscoverer struct{}

func (ipDiscoverer) OutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
