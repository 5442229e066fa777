package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/inventory"
	"github.com/HerbHall/devwatch/pkg/models"
)

// DeviceSource is the read side of the inventory used by the resync API.
// Defined here (consumer-side) rather than importing the full store.
type DeviceSource interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	ListGroups(ctx context.Context) ([]models.DeviceGroup, error)
}

// GroupResponse is one bucket of GET /api/v1/groups.
type GroupResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	DeviceCount int             `json:"device_count"`
	OnlineCount int             `json:"online_count"`
	Devices     []models.Device `json:"devices"`
}

// GroupsResponse is the response for GET /api/v1/groups. Devices with no
// group, or a group that no longer exists, are reported under Ungrouped.
type GroupsResponse struct {
	Groups    []GroupResponse `json:"groups"`
	Ungrouped GroupResponse   `json:"ungrouped"`
}

// CategoryResponse summarizes one device category.
type CategoryResponse struct {
	Category    models.DeviceCategory `json:"category"`
	Icon        string                `json:"icon"`
	DeviceCount int                   `json:"device_count"`
	OnlineCount int                   `json:"online_count"`
}

// handleListDevices returns every device with its current liveness, the
// full state a client needs to resync after a reconnect. An optional
// ?category= narrows the list.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("list devices failed", zap.Error(err))
		InternalError(w, "failed to list devices", r.URL.Path)
		return
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := models.DeviceCategory(raw)
		if !category.Valid() {
			BadRequest(w, "unknown category "+raw, r.URL.Path)
			return
		}
		devices = inventory.DevicesByCategory(devices)[category]
	}
	if devices == nil {
		devices = []models.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	device, err := s.devices.GetDevice(r.Context(), id)
	if errors.Is(err, inventory.ErrNotFound) {
		NotFound(w, "device "+id+" not found", r.URL.Path)
		return
	}
	if err != nil {
		s.logger.Error("get device failed", zap.String("device_id", id), zap.Error(err))
		InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := s.devices.ListGroups(ctx)
	if err != nil {
		s.logger.Error("list groups failed", zap.Error(err))
		InternalError(w, "failed to list groups", r.URL.Path)
		return
	}
	devices, err := s.devices.ListDevices(ctx)
	if err != nil {
		s.logger.Error("list devices failed", zap.Error(err))
		InternalError(w, "failed to list devices", r.URL.Path)
		return
	}

	grouped, ungrouped := inventory.GroupDevices(groups, devices)
	resp := GroupsResponse{
		Groups:    make([]GroupResponse, 0, len(grouped)),
		Ungrouped: bucket("ungrouped", "Ungrouped", "", ungrouped),
	}
	for _, g := range grouped {
		resp.Groups = append(resp.Groups, bucket(g.Group.ID, g.Group.Name, g.Group.Description, g.Devices))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("list devices failed", zap.Error(err))
		InternalError(w, "failed to list devices", r.URL.Path)
		return
	}

	byCategory := inventory.DevicesByCategory(devices)
	resp := make([]CategoryResponse, 0, len(models.Categories))
	for _, c := range models.Categories {
		members := byCategory[c]
		resp = append(resp, CategoryResponse{
			Category:    c,
			Icon:        c.Icon(),
			DeviceCount: len(members),
			OnlineCount: countOnline(members),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func bucket(id, name, description string, devices []models.Device) GroupResponse {
	return GroupResponse{
		ID:          id,
		Name:        name,
		Description: description,
		DeviceCount: len(devices),
		OnlineCount: countOnline(devices),
		Devices:     devices,
	}
}

func countOnline(devices []models.Device) int {
	n := 0
	for i := range devices {
		if devices[i].IsOnline {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
