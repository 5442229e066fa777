package pulse

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Compile-time interface guard.
var _ Evaluator = (*TCPEvaluator)(nil)

// TCPEvaluator reports a device online when a TCP connection to it succeeds.
// Addresses without a port use the configured default port.
type TCPEvaluator struct {
	port    int
	timeout time.Duration
}

// NewTCPEvaluator creates a TCP evaluator with the given default port and
// connection timeout.
func NewTCPEvaluator(port int, timeout time.Duration) *TCPEvaluator {
	return &TCPEvaluator{port: port, timeout: timeout}
}

// Evaluate dials the device. A refused or timed-out dial is "offline", not an
// error; only an unusable address is reported as an error.
func (e *TCPEvaluator) Evaluate(ctx context.Context, device models.Device) (bool, error) {
	target, err := e.target(device.Address)
	if err != nil {
		return false, err
	}

	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	conn.Close()
	return true, nil
}

func (e *TCPEvaluator) target(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("empty address")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	return net.JoinHostPort(addr, strconv.Itoa(e.port)), nil
}
