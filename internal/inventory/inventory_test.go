package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HerbHall/devwatch/internal/store"
	"github.com/HerbHall/devwatch/internal/testutil"
	"github.com/HerbHall/devwatch/pkg/models"
)

func newSQLStore(t *testing.T) Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), "inventory", Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLStore(db.DB())
}

func newMemoryStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

// TestStoreContract runs the same behavioural suite against every Store.
func TestStoreContract(t *testing.T) {
	factories := []struct {
		name    string
		factory func(t *testing.T) Store
	}{
		{name: "sql", factory: newSQLStore},
		{name: "memory", factory: newMemoryStore},
	}
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			runStoreContract(t, f.factory)
		})
	}
}

func runStoreContract(t *testing.T, factory func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create_and_get_device", func(t *testing.T) {
		s := factory(t)
		d := testutil.NewDevice(testutil.WithName("gw"), testutil.WithCategory(models.CategoryRouter))
		if err := s.CreateDevice(ctx, &d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}

		got, err := s.GetDevice(ctx, d.ID)
		if err != nil {
			t.Fatalf("GetDevice: %v", err)
		}
		if got.Name != "gw" || got.Category != models.CategoryRouter {
			t.Errorf("got %+v, want name gw category router", got)
		}
		if got.IsOnline {
			t.Error("new device should default to offline")
		}
		if got.LastSeen != nil {
			t.Errorf("LastSeen = %v, want nil", got.LastSeen)
		}
	})

	t.Run("create_assigns_id_and_default_category", func(t *testing.T) {
		s := factory(t)
		d := models.Device{Name: "nameless", Address: "10.1.1.1"}
		if err := s.CreateDevice(ctx, &d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}
		if d.ID == "" {
			t.Error("CreateDevice did not assign an ID")
		}
		if d.Category != models.CategoryOther {
			t.Errorf("Category = %q, want %q", d.Category, models.CategoryOther)
		}
	})

	t.Run("create_rejects_unknown_category", func(t *testing.T) {
		s := factory(t)
		d := testutil.NewDevice(testutil.WithCategory("toaster"))
		err := s.CreateDevice(ctx, &d)
		if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("CreateDevice error = %v, want ErrInvalidCategory", err)
		}
	})

	t.Run("get_missing_device", func(t *testing.T) {
		s := factory(t)
		_, err := s.GetDevice(ctx, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetDevice error = %v, want ErrNotFound", err)
		}
	})

	t.Run("update_device_liveness", func(t *testing.T) {
		s := factory(t)
		d := testutil.NewDevice()
		if err := s.CreateDevice(ctx, &d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}

		online := true
		seen := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		updated, err := s.UpdateDevice(ctx, d.ID, models.DevicePatch{IsOnline: &online, LastSeen: &seen})
		if err != nil {
			t.Fatalf("UpdateDevice: %v", err)
		}
		if !updated.IsOnline {
			t.Error("returned device not online")
		}
		if updated.LastSeen == nil || !updated.LastSeen.Equal(seen) {
			t.Errorf("returned LastSeen = %v, want %v", updated.LastSeen, seen)
		}

		got, err := s.GetDevice(ctx, d.ID)
		if err != nil {
			t.Fatalf("GetDevice: %v", err)
		}
		if !got.IsOnline || got.LastSeen == nil || !got.LastSeen.Equal(seen) {
			t.Errorf("stored device = online %v last_seen %v, want true %v", got.IsOnline, got.LastSeen, seen)
		}
		if got.Name != d.Name {
			t.Errorf("Name changed to %q", got.Name)
		}
	})

	t.Run("update_missing_device", func(t *testing.T) {
		s := factory(t)
		online := true
		_, err := s.UpdateDevice(ctx, "ghost", models.DevicePatch{IsOnline: &online})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateDevice error = %v, want ErrNotFound", err)
		}
	})

	t.Run("update_after_delete", func(t *testing.T) {
		s := factory(t)
		d := testutil.NewDevice()
		if err := s.CreateDevice(ctx, &d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}
		if err := s.DeleteDevice(ctx, d.ID); err != nil {
			t.Fatalf("DeleteDevice: %v", err)
		}
		online := true
		if _, err := s.UpdateDevice(ctx, d.ID, models.DevicePatch{IsOnline: &online}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateDevice after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list_devices", func(t *testing.T) {
		s := factory(t)
		for _, d := range testutil.NewDevices(5) {
			d := d
			if err := s.CreateDevice(ctx, &d); err != nil {
				t.Fatalf("CreateDevice: %v", err)
			}
		}
		devices, err := s.ListDevices(ctx)
		if err != nil {
			t.Fatalf("ListDevices: %v", err)
		}
		if len(devices) != 5 {
			t.Fatalf("len(devices) = %d, want 5", len(devices))
		}
		if devices[0].Name != "device-000" {
			t.Errorf("first device = %q, want device-000 (sorted by name)", devices[0].Name)
		}
	})

	t.Run("delete_group_ungroups_devices", func(t *testing.T) {
		s := factory(t)
		g := models.DeviceGroup{Name: "Lab"}
		if err := s.CreateGroup(ctx, &g); err != nil {
			t.Fatalf("CreateGroup: %v", err)
		}
		d := testutil.NewDevice(testutil.WithGroup(g.ID))
		if err := s.CreateDevice(ctx, &d); err != nil {
			t.Fatalf("CreateDevice: %v", err)
		}

		if err := s.DeleteGroup(ctx, g.ID); err != nil {
			t.Fatalf("DeleteGroup: %v", err)
		}

		got, err := s.GetDevice(ctx, d.ID)
		if err != nil {
			t.Fatalf("device deleted with its group: %v", err)
		}
		if got.GroupID != nil {
			t.Errorf("GroupID = %q, want nil", *got.GroupID)
		}
		if _, err := s.GetGroup(ctx, g.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetGroup after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("users_and_preferences", func(t *testing.T) {
		s := factory(t)
		u := testutil.NewUser(testutil.WithEmail("ops@example.com"))
		if err := s.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		users, err := s.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		if len(users) != 1 || !users[0].NotificationsEnabled {
			t.Fatalf("users = %+v, want one user with notifications enabled", users)
		}

		if err := s.SetNotifications(ctx, u.ID, false); err != nil {
			t.Fatalf("SetNotifications: %v", err)
		}
		got, err := s.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if got.NotificationsEnabled {
			t.Error("NotificationsEnabled still true after disabling")
		}
		if got.Email != "ops@example.com" {
			t.Errorf("Email = %q", got.Email)
		}

		if err := s.SetNotifications(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetNotifications(ghost) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGroupDevices_ToleratesDanglingGroup(t *testing.T) {
	groups := []models.DeviceGroup{{ID: "g1", Name: "Core"}}
	devices := []models.Device{
		testutil.NewDevice(testutil.WithID("a"), testutil.WithGroup("g1")),
		testutil.NewDevice(testutil.WithID("b"), testutil.WithGroup("deleted-group")),
		testutil.NewDevice(testutil.WithID("c")),
	}

	grouped, ungrouped := GroupDevices(groups, devices)

	if len(grouped) != 1 || len(grouped[0].Devices) != 1 || grouped[0].Devices[0].ID != "a" {
		t.Errorf("grouped = %+v, want g1 -> [a]", grouped)
	}
	if len(ungrouped) != 2 {
		t.Fatalf("len(ungrouped) = %d, want 2", len(ungrouped))
	}
	if ungrouped[0].ID != "b" || ungrouped[1].ID != "c" {
		t.Errorf("ungrouped = [%s %s], want [b c]", ungrouped[0].ID, ungrouped[1].ID)
	}
}

func TestDevicesByCategory(t *testing.T) {
	devices := []models.Device{
		testutil.NewDevice(testutil.WithCategory(models.CategoryRouter)),
		testutil.NewDevice(testutil.WithCategory(models.CategoryRouter)),
		testutil.NewDevice(testutil.WithCategory("legacy")),
	}

	got := DevicesByCategory(devices)

	if len(got[models.CategoryRouter]) != 2 {
		t.Errorf("routers = %d, want 2", len(got[models.CategoryRouter]))
	}
	if len(got[models.CategoryOther]) != 1 {
		t.Errorf("other = %d, want 1", len(got[models.CategoryOther]))
	}
	if _, ok := got[models.CategoryCamera]; !ok {
		t.Error("empty categories should still be present")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	d := testutil.NewDevice(testutil.WithGroup("g"))
	if err := s.CreateDevice(ctx, &d); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	got, _ := s.GetDevice(ctx, d.ID)
	*got.GroupID = "mutated"
	got.Name = "mutated"

	again, _ := s.GetDevice(ctx, d.ID)
	if *again.GroupID != "g" || again.Name == "mutated" {
		t.Error("caller mutation leaked into the store")
	}
}
