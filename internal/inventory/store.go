// Package inventory holds the durable device, group, and user records that the
// liveness pipeline reads and updates.
package inventory

import (
	"context"
	"errors"

	"github.com/HerbHall/devwatch/pkg/models"
)

// ErrNotFound is returned when a record with the requested ID does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidCategory is returned when a device carries a category outside
// models.Categories.
var ErrInvalidCategory = errors.New("invalid device category")

// Store is the record store consumed by the reconciler, the resync API and the
// seeder. Implementations must be safe for concurrent use.
type Store interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	// GetDevice returns ErrNotFound when the device does not exist.
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	CreateDevice(ctx context.Context, d *models.Device) error
	// UpdateDevice applies patch and returns the stored result.
	// Returns ErrNotFound when the device was deleted.
	UpdateDevice(ctx context.Context, id string, patch models.DevicePatch) (*models.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	ListGroups(ctx context.Context) ([]models.DeviceGroup, error)
	GetGroup(ctx context.Context, id string) (*models.DeviceGroup, error)
	CreateGroup(ctx context.Context, g *models.DeviceGroup) error
	// DeleteGroup removes the group; member devices become ungrouped.
	DeleteGroup(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetNotifications(ctx context.Context, userID string, enabled bool) error
}

// GroupView is a group with the devices that currently reference it.
type GroupView struct {
	Group   *models.DeviceGroup `json:"group,omitempty"`
	Devices []models.Device     `json:"devices"`
}

// GroupDevices buckets devices by group. Devices without a group, or whose
// group ID names no known group, land in the returned ungrouped slice.
func GroupDevices(groups []models.DeviceGroup, devices []models.Device) (grouped []GroupView, ungrouped []models.Device) {
	index := make(map[string]int, len(groups))
	grouped = make([]GroupView, len(groups))
	for i := range groups {
		index[groups[i].ID] = i
		grouped[i] = GroupView{Group: &groups[i], Devices: []models.Device{}}
	}
	ungrouped = []models.Device{}

	for _, d := range devices {
		if d.GroupID != nil {
			if i, ok := index[*d.GroupID]; ok {
				grouped[i].Devices = append(grouped[i].Devices, d)
				continue
			}
		}
		ungrouped = append(ungrouped, d)
	}
	return grouped, ungrouped
}

// DevicesByCategory buckets devices by category, keyed in models.Categories
// order. Unknown categories are counted as models.CategoryOther.
func DevicesByCategory(devices []models.Device) map[models.DeviceCategory][]models.Device {
	out := make(map[models.DeviceCategory][]models.Device, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = []models.Device{}
	}
	for _, d := range devices {
		c := d.Category
		if !c.Valid() {
			c = models.CategoryOther
		}
		out[c] = append(out[c], d)
	}
	return out
}
