package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/devwatch/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	now := time.Now().UTC()
	d := models.Device{
		ID:        uuid.New().String(),
		Name:      "test-device",
		Address:   "192.168.1.100",
		Category:  models.CategoryWorkstation,
		IsOnline:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewDevices returns n devices named "device-000".."device-(n-1)" with
// distinct 10.0.x.y addresses, all offline.
func NewDevices(n int) []models.Device {
	out := make([]models.Device, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewDevice(
			WithID(fmt.Sprintf("dev-%03d", i)),
			WithName(fmt.Sprintf("device-%03d", i)),
			WithAddress(fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)),
		))
	}
	return out
}

// WithID sets the device ID.
func WithID(id string) func(*models.Device) {
	return func(d *models.Device) { d.ID = id }
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithAddress sets the device's network address.
func WithAddress(addr string) func(*models.Device) {
	return func(d *models.Device) { d.Address = addr }
}

// WithOnline sets the stored liveness flag.
func WithOnline(online bool) func(*models.Device) {
	return func(d *models.Device) { d.IsOnline = online }
}

// WithLastSeen sets the device's last_seen timestamp.
func WithLastSeen(t time.Time) func(*models.Device) {
	return func(d *models.Device) { d.LastSeen = &t }
}

// WithCategory sets the device category.
func WithCategory(c models.DeviceCategory) func(*models.Device) {
	return func(d *models.Device) { d.Category = c }
}

// WithGroup assigns the device to a group.
func WithGroup(groupID string) func(*models.Device) {
	return func(d *models.Device) { d.GroupID = &groupID }
}

// NewUser returns a User with notifications enabled.
func NewUser(opts ...func(*models.User)) models.User {
	id := uuid.New().String()
	u := models.User{
		ID:                   id,
		Username:             "user-" + id[:8],
		Email:                "user-" + id[:8] + "@example.com",
		NotificationsEnabled: true,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithEmail sets the user's e-mail address.
func WithEmail(email string) func(*models.User) {
	return func(u *models.User) { u.Email = email }
}

// WithNotifications toggles the user's notification preference.
func WithNotifications(enabled bool) func(*models.User) {
	return func(u *models.User) { u.NotificationsEnabled = enabled }
}
