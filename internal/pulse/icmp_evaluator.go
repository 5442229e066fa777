package pulse

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Compile-time interface guard.
var _ Evaluator = (*ICMPEvaluator)(nil)

// ICMPEvaluator reports a device online when it answers at least one echo
// request within the timeout.
type ICMPEvaluator struct {
	timeout    time.Duration
	count      int
	privileged bool
}

// NewICMPEvaluator creates an ICMP evaluator. Windows always uses privileged
// mode because unprivileged ICMP sockets are unavailable there.
func NewICMPEvaluator(timeout time.Duration, count int, privileged bool) *ICMPEvaluator {
	if count <= 0 {
		count = 1
	}
	return &ICMPEvaluator{
		timeout:    timeout,
		count:      count,
		privileged: privileged || runtime.GOOS == "windows",
	}
}

func (e *ICMPEvaluator) Evaluate(ctx context.Context, device models.Device) (bool, error) {
	host := hostOnly(device.Address)
	if host == "" {
		return false, fmt.Errorf("device %s has no address", device.ID)
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, fmt.Errorf("create pinger for %s: %w", host, err)
	}
	pinger.Count = e.count
	pinger.Timeout = e.timeout
	pinger.SetPrivileged(e.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("ping %s: %w", host, err)
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}

// hostOnly strips an optional port from addr.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
