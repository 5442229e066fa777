package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/google/uuid"
)

// Compile-time interface guard.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a volatile Store used by demo mode and tests.
// Values are copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]models.Device
	groups  map[string]models.DeviceGroup
	users   map[string]models.User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]models.Device),
		groups:  make(map[string]models.DeviceGroup),
		users:   make(map[string]models.User),
	}
}

func (s *MemoryStore) ListDevices(_ context.Context) ([]models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, cloneDevice(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetDevice(_ context.Context, id string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	c := cloneDevice(d)
	return &c, nil
}

func (s *MemoryStore) CreateDevice(_ context.Context, d *models.Device) error {
	if d.Category == "" {
		d.Category = models.CategoryOther
	}
	if !d.Category.Valid() {
		return fmt.Errorf("create device: %w: %q", ErrInvalidCategory, d.Category)
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.devices[d.ID]; exists {
		return fmt.Errorf("insert device: duplicate id %s", d.ID)
	}
	s.devices[d.ID] = cloneDevice(*d)
	return nil
}

func (s *MemoryStore) UpdateDevice(_ context.Context, id string, patch models.DevicePatch) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	updated := patch.Apply(cloneDevice(current))
	if !updated.Category.Valid() {
		return nil, fmt.Errorf("update device: %w: %q", ErrInvalidCategory, updated.Category)
	}
	updated.UpdatedAt = time.Now().UTC()
	s.devices[id] = updated

	out := cloneDevice(updated)
	return &out, nil
}

func (s *MemoryStore) DeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.devices, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListGroups(_ context.Context) ([]models.DeviceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DeviceGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id string) (*models.DeviceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return &g, nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, g *models.DeviceGroup) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.groups[g.ID] = *g
	s.mu.Unlock()
	return nil
}

// DeleteGroup removes the group and clears GroupID on its members.
func (s *MemoryStore) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groups, id)
	for devID, d := range s.devices {
		if d.GroupID != nil && *d.GroupID == id {
			d.GroupID = nil
			s.devices[devID] = d
		}
	}
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("insert user: duplicate username %q", u.Username)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) SetNotifications(_ context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.NotificationsEnabled = enabled
	s.users[userID] = u
	return nil
}

// cloneDevice deep-copies the pointer fields of d.
func cloneDevice(d models.Device) models.Device {
	if d.GroupID != nil {
		g := *d.GroupID
		d.GroupID = &g
	}
	if d.LastSeen != nil {
		ts := *d.LastSeen
		d.LastSeen = &ts
	}
	return d
}
