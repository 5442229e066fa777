package mqtt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/HerbHall/devwatch/pkg/models"
)

// nonAlphanumeric matches any character that is not alphanumeric or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DiscoveryConfig holds a single HA MQTT discovery payload.
type DiscoveryConfig struct {
	Topic   string // Full MQTT topic (homeassistant/...)
	Payload []byte // JSON-encoded config
}

// HADevice is the "device" block in HA discovery payloads.
type HADevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model,omitempty"`
	ViaDevice   string   `json:"via_device,omitempty"`
}

// BinarySensorConfig is the HA discovery payload for binary_sensor.
type BinarySensorConfig struct {
	Name        string   `json:"name"`
	ObjectID    string   `json:"object_id"`
	UniqueID    string   `json:"unique_id"`
	StateTopic  string   `json:"state_topic"`
	DeviceClass string   `json:"device_class,omitempty"`
	PayloadOn   string   `json:"payload_on"`
	PayloadOff  string   `json:"payload_off"`
	Device      HADevice `json:"device"`
}

// SensorConfig is the HA discovery payload for sensor.
type SensorConfig struct {
	Name       string   `json:"name"`
	ObjectID   string   `json:"object_id"`
	UniqueID   string   `json:"unique_id"`
	StateTopic string   `json:"state_topic"`
	Icon       string   `json:"icon,omitempty"`
	Device     HADevice `json:"device"`
}

// SafeObjectID sanitizes a string for use as an HA object_id.
func SafeObjectID(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

func buildHADevice(device *models.Device) HADevice {
	name := device.Name
	if name == "" {
		name = device.ID
	}
	return HADevice{
		Identifiers: []string{"devwatch_" + device.ID},
		Name:        name,
		Model:       string(device.Category),
		ViaDevice:   "devwatch",
	}
}

// DeviceStateTopic is where a device's ON/OFF liveness state is published.
func DeviceStateTopic(prefix, deviceID string) string {
	return prefix + "/device/" + deviceID + "/online"
}

// BuildDeviceDiscoveryConfigs creates HA discovery payloads for a device: an
// online/offline binary_sensor, a category sensor and, when known, an
// address sensor.
func BuildDeviceDiscoveryConfigs(device *models.Device, topicPrefix, haPrefix string) []DiscoveryConfig {
	if device == nil {
		return nil
	}

	safeID := SafeObjectID(device.ID)
	haDevice := buildHADevice(device)
	configs := make([]DiscoveryConfig, 0, 3)

	add := func(topic string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			return
		}
		configs = append(configs, DiscoveryConfig{Topic: topic, Payload: payload})
	}

	add(fmt.Sprintf("%s/binary_sensor/devwatch_%s/online/config", haPrefix, safeID), BinarySensorConfig{
		Name:        haDevice.Name + " Online",
		ObjectID:    "devwatch_" + safeID + "_online",
		UniqueID:    "devwatch_" + safeID + "_online",
		StateTopic:  DeviceStateTopic(topicPrefix, device.ID),
		DeviceClass: "connectivity",
		PayloadOn:   "ON",
		PayloadOff:  "OFF",
		Device:      haDevice,
	})

	add(fmt.Sprintf("%s/sensor/devwatch_%s/category/config", haPrefix, safeID), SensorConfig{
		Name:       haDevice.Name + " Category",
		ObjectID:   "devwatch_" + safeID + "_category",
		UniqueID:   "devwatch_" + safeID + "_category",
		StateTopic: topicPrefix + "/device/" + device.ID + "/category",
		Icon:       CategoryIcon(device.Category),
		Device:     haDevice,
	})

	if device.Address != "" {
		add(fmt.Sprintf("%s/sensor/devwatch_%s/address/config", haPrefix, safeID), SensorConfig{
			Name:       haDevice.Name + " Address",
			ObjectID:   "devwatch_" + safeID + "_address",
			UniqueID:   "devwatch_" + safeID + "_address",
			StateTopic: topicPrefix + "/device/" + device.ID + "/address",
			Icon:       "mdi:ip-network",
			Device:     haDevice,
		})
	}

	return configs
}

// CategoryIcon maps a device category to a Material Design icon.
func CategoryIcon(c models.DeviceCategory) string {
	switch c {
	case models.CategoryRouter:
		return "mdi:router-network"
	case models.CategorySwitch:
		return "mdi:switch"
	case models.CategoryAccessPoint:
		return "mdi:access-point"
	case models.CategoryServer:
		return "mdi:server"
	case models.CategoryWorkstation:
		return "mdi:desktop-tower-monitor"
	case models.CategoryPrinter:
		return "mdi:printer"
	case models.CategoryCamera:
		return "mdi:cctv"
	case models.CategoryIoT:
		return "mdi:chip"
	default:
		return "mdi:help-network"
	}
}
