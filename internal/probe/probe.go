// Package probe implements the checks run against monitored endpoints. A probe
// never returns an error: every failure mode is folded into a failed
// model.CheckResult.
package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dandantas/pulse/internal/model"
)

// Prober runs a single check for a monitor within the given timeout
type Prober interface {
	Check(ctx context.Context, monitor *model.Monitor, timeout time.Duration) model.CheckResult
}

// isTimeout reports whether err was caused by the check deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
