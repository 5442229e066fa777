// Package notify delivers per-user e-mail notifications for device status
// transitions.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/pkg/models"
)

// Dispatcher makes one delivery attempt per call. Failures are logged and
// counted; Notify never returns an error.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher returns a dispatcher that bounds each send by cfg.Timeout.
func NewDispatcher(mailer Mailer, cfg Config, logger *zap.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Dispatcher{mailer: mailer, timeout: timeout, logger: logger}
}

// Notify mails user about device's new state. Users who disabled
// notifications, or have no address, are skipped.
func (d *Dispatcher) Notify(ctx context.Context, user models.User, device models.Device, isOnline bool) {
	if !user.NotificationsEnabled {
		notificationsSkipped.WithLabelValues("disabled").Inc()
		return
	}
	if user.Email == "" {
		notificationsSkipped.WithLabelValues("no_email").Inc()
		return
	}

	subject, body, err := renderStatus(device, isOnline)
	if err != nil {
		d.report(&NotificationError{Kind: KindRender, UserID: user.ID, DeviceID: device.ID, Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.mailer.Send(ctx, user.Email, subject, body); err != nil {
		d.report(classify(err, user, device))
		return
	}

	notificationsSent.Inc()
	d.logger.Info("notification sent",
		zap.String("user_id", user.ID),
		zap.String("device_id", device.ID),
		zap.String("status", statusLabel(isOnline)),
	)
}

func (d *Dispatcher) report(nerr *NotificationError) {
	notificationsFailed.WithLabelValues(nerr.Kind).Inc()
	fields := []zap.Field{
		zap.String("kind", nerr.Kind),
		zap.String("user_id", nerr.UserID),
		zap.String("device_id", nerr.DeviceID),
		zap.Error(nerr.Err),
	}
	if nerr.Detail != "" {
		fields = append(fields, zap.String("detail", nerr.Detail), zap.Bool("temporary", nerr.Temporary))
	}
	if nerr.Code != 0 {
		fields = append(fields, zap.Int("smtp_code", nerr.Code))
	}
	d.logger.Warn("notification failed", fields...)
}

// classify maps a mailer error to a NotificationError kind with transport detail.
func classify(err error, user models.User, device models.Device) *NotificationError {
	nerr := &NotificationError{Kind: KindTransport, UserID: user.ID, DeviceID: device.ID, Err: err}

	var sendErr *mail.SendError
	switch {
	case errors.Is(err, ErrInvalidAddress):
		nerr.Kind = KindInvalidAddress
	case errors.As(err, &sendErr):
		nerr.Kind = KindSMTPSend
		nerr.Detail = sendErr.Reason.String()
		nerr.Temporary = sendErr.IsTemp()
		nerr.Code = sendErr.ErrorCode()
		if enh := sendErr.EnhancedStatusCode(); enh != "" {
			nerr.Detail += " (" + enh + ")"
		}
	case errors.Is(err, context.DeadlineExceeded):
		nerr.Kind = KindTimeout
	}
	return nerr
}
