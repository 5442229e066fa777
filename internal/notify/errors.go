package notify

import (
	"errors"
	"fmt"
)

// Failure kinds reported in NotificationError.Kind.
const (
	KindSMTPSend       = "smtp_send"
	KindInvalidAddress = "invalid_address"
	KindTimeout        = "timeout"
	KindRender         = "render"
	KindTransport      = "transport"
)

// ErrInvalidAddress is returned by mailers for a sender or recipient that
// does not parse as an e-mail address.
var ErrInvalidAddress = errors.New("invalid e-mail address")

// NotificationError describes one failed delivery attempt. It is logged, not
// returned to the reconciler.
type NotificationError struct {
	Kind      string
	UserID    string
	DeviceID  string
	Detail    string
	Temporary bool
	Code      int
	Err       error
}

func (e *NotificationError) Error() string {
	msg := fmt.Sprintf("notify user %s about device %s: %s", e.UserID, e.DeviceID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotificationError) Unwrap() error { return e.Err }
