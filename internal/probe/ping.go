package probe

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/dandantas/pulse/internal/model"
)

// DialFunc opens a network connection
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// PingProbe checks TCP reachability by opening and closing a connection
type PingProbe struct {
	dial DialFunc
}

// NewPingProbe creates a ping probe using the system dialer
func NewPingProbe() *PingProbe {
	dialer := &net.Dialer{}
	return NewPingProbeWithDialer(dialer.DialContext)
}

// NewPingProbeWithDialer creates a ping probe using a custom dial function
func NewPingProbeWithDialer(dial DialFunc) *PingProbe {
	return &PingProbe{dial: dial}
}

// Check connects to hostname:port without sending any payload
func (p *PingProbe) Check(ctx context.Context, monitor *model.Monitor, timeout time.Duration) model.CheckResult {
	start := time.Now()
	startedAt := start.UTC()

	if monitor.Ping == nil {
		return model.Failed(startedAt, 0, "monitor has no ping target")
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", monitor.Address())
	elapsed := time.Since(start)
	if err != nil {
		message := err.Error()
		if isTimeout(err) {
			message = "Connection timeout"
		}
		slog.Debug("Ping check failed",
			"monitor_id", monitor.ID,
			"address", monitor.Address(),
			"error", message,
		)
		return model.Failed(startedAt, elapsed, message)
	}
	conn.Close()

	slog.Debug("Ping check succeeded",
		"monitor_id", monitor.ID,
		"address", monitor.Address(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return model.Succeeded(startedAt, elapsed)
}
