package models

import "time"

// DeviceCategory classifies a monitored device. The set is fixed.
type DeviceCategory string

const (
	CategoryRouter      DeviceCategory = "router"
	CategorySwitch      DeviceCategory = "switch"
	CategoryAccessPoint DeviceCategory = "access_point"
	CategoryServer      DeviceCategory = "server"
	CategoryWorkstation DeviceCategory = "workstation"
	CategoryPrinter     DeviceCategory = "printer"
	CategoryCamera      DeviceCategory = "camera"
	CategoryIoT         DeviceCategory = "iot"
	CategoryOther       DeviceCategory = "other"
)

// Categories lists every valid DeviceCategory in display order.
var Categories = []DeviceCategory{
	CategoryRouter,
	CategorySwitch,
	CategoryAccessPoint,
	CategoryServer,
	CategoryWorkstation,
	CategoryPrinter,
	CategoryCamera,
	CategoryIoT,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c DeviceCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts s to a DeviceCategory, falling back to CategoryOther
// for empty or unrecognised values.
func ParseCategory(s string) DeviceCategory {
	c := DeviceCategory(s)
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Device represents a network device whose liveness is tracked.
type Device struct {
	ID          string         `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string         `json:"name" example:"core-switch"`
	Address     string         `json:"address" example:"192.168.1.2"`
	Description string         `json:"description,omitempty" example:"Rack A, top of rack"`
	Category    DeviceCategory `json:"category" example:"switch"`
	GroupID     *string        `json:"group_id,omitempty"`
	IsOnline    bool           `json:"is_online"`
	LastSeen    *time.Time     `json:"last_seen,omitempty" example:"2026-01-15T10:30:00Z"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DeviceGroup is a named collection of devices. A device belongs to at most one group.
type DeviceGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" example:"Office LAN"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DevicePatch is a partial device update. Nil fields are left unchanged.
type DevicePatch struct {
	Name        *string
	Address     *string
	Description *string
	Category    *DeviceCategory
	GroupID     **string
	IsOnline    *bool
	LastSeen    *time.Time
}

// Apply returns a copy of d with the non-nil patch fields applied.
func (p DevicePatch) Apply(d Device) Device {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Address != nil {
		d.Address = *p.Address
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.GroupID != nil {
		d.GroupID = *p.GroupID
	}
	if p.IsOnline != nil {
		d.IsOnline = *p.IsOnline
	}
	if p.LastSeen != nil {
		ts := *p.LastSeen
		d.LastSeen = &ts
	}
	return d
}

// Empty reports whether the patch changes nothing.
func (p DevicePatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.Description == nil &&
		p.Category == nil && p.GroupID == nil && p.IsOnline == nil && p.LastSeen == nil
}
