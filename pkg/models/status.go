package models

import "time"

// StatusChange records one liveness transition detected during a reconciliation
// tick. It is transient and never persisted.
type StatusChange struct {
	DeviceID string
	IsOnline bool
	LastSeen time.Time
}

// MessageTypeDeviceStatus is the type discriminator of push messages that
// carry a StatusChange.
const MessageTypeDeviceStatus = "device_status"

// StatusMessage is the JSON shape pushed to viewers for every StatusChange.
type StatusMessage struct {
	Type     string    `json:"type"`
	DeviceID string    `json:"deviceId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Message converts the change to its wire form.
func (c StatusChange) Message() StatusMessage {
	return StatusMessage{
		Type:     MessageTypeDeviceStatus,
		DeviceID: c.DeviceID,
		IsOnline: c.IsOnline,
		LastSeen: c.LastSeen.UTC(),
	}
}

// Change converts a received message back into a StatusChange.
func (m StatusMessage) Change() StatusChange {
	return StatusChange{
		DeviceID: m.DeviceID,
		IsOnline: m.IsOnline,
		LastSeen: m.LastSeen,
	}
}
