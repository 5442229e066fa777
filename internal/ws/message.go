package ws

import (
	"encoding/json"
	"fmt"

	"github.com/HerbHall/devwatch/pkg/models"
)

// encodeStatus renders a status change as the device_status wire message.
func encodeStatus(change models.StatusChange) ([]byte, error) {
	payload, err := json.Marshal(change.Message())
	if err != nil {
		return nil, fmt.Errorf("encode status message: %w", err)
	}
	return payload, nil
}
