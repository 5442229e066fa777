package pulse

import "github.com/HerbHall/devwatch/pkg/models"

// Event topics published by the reconciler.
const (
	TopicDeviceStatusChanged = "device.status.changed"
)

// DeviceStatusEvent is the payload of TopicDeviceStatusChanged. Device holds
// the record as persisted by the transition.
type DeviceStatusEvent struct {
	Device models.Device
	Change models.StatusChange
}
