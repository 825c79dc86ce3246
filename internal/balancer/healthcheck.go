package balancer

import (
	"context"
	"net"
	"time"

	"github.com/clusterpilot/clusterpilot/internal/backend"
)

// DefaultProbeTimeout bounds each TCP reachability probe.
const DefaultProbeTimeout = 2 * time.Second

// ProbeResult classifies the outcome of a reachability probe.
type ProbeResult int

const (
	// ProbeReachable means the TCP connection succeeded.
	ProbeReachable ProbeResult = iota
	// ProbeTimeout means the connection attempt timed out.
	ProbeTimeout
	// ProbeUnreachable means the connection was refused or failed.
	ProbeUnreachable
)

// Prober is the interface for pluggable reachability probes. The
// default implementation dials TCP; tests substitute fakes.
type Prober interface {
	// Probe attempts to reach the given host:port address within the
	// prober's timeout.
	Probe(ctx context.Context, address string) ProbeResult
}

// NewTCPProber returns a Prober that opens and closes one TCP
// connection per probe, bounded by the given timeout.
func NewTCPProber(timeout time.Duration) Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &tcpProber{timeout: timeout}
}

type tcpProber struct {
	timeout time.Duration
}

func (p *tcpProber) Probe(ctx context.Context, address string) ProbeResult {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err == nil {
		_ = conn.Close()
		return ProbeReachable
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return ProbeTimeout
	}
	return ProbeUnreachable
}

// statusForProbe maps a probe outcome to a backend health status.
func statusForProbe(result ProbeResult) backend.Status {
	switch result {
	case ProbeReachable:
		return backend.StatusHealthy
	case ProbeTimeout:
		return backend.StatusDegraded
	default:
		return backend.StatusUnhealthy
	}
}
