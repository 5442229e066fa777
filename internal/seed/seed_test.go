package seed

import (
	"context"
	"testing"

	"github.com/HerbHall/devwatch/internal/inventory"
	"github.com/HerbHall/devwatch/internal/store"
	"github.com/HerbHall/devwatch/pkg/models"
)

// setupTestDB creates an in-memory SQLite database with inventory tables.
func setupTestDB(t *testing.T) *inventory.SQLStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), "inventory", inventory.Migrations()); err != nil {
		t.Fatalf("inventory migrations: %v", err)
	}
	return inventory.NewSQLStore(db.DB())
}

func TestSeedDemoNetwork_Success(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	res, err := SeedDemoNetwork(ctx, st)
	if err != nil {
		t.Fatalf("SeedDemoNetwork: %v", err)
	}
	if res.Groups != 3 || res.Devices != 12 || res.Users != 3 {
		t.Errorf("result = %+v, want 3 groups, 12 devices, 3 users", res)
	}

	devices, err := st.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 12 {
		t.Fatalf("len(devices) = %d, want 12", len(devices))
	}
	for _, d := range devices {
		if !d.Category.Valid() {
			t.Errorf("device %s has invalid category %q", d.ID, d.Category)
		}
		if d.IsOnline && d.LastSeen == nil {
			t.Errorf("online device %s has no LastSeen", d.ID)
		}
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	enabled := 0
	for _, u := range users {
		if u.WantsNotifications() {
			enabled++
		}
	}
	if enabled != 2 {
		t.Errorf("users wanting notifications = %d, want 2", enabled)
	}
}

func TestSeedDemoNetwork_Idempotent(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	if _, err := SeedDemoNetwork(ctx, st); err != nil {
		t.Fatalf("first SeedDemoNetwork: %v", err)
	}

	// Live state changes must survive a re-seed.
	online := false
	if _, err := st.UpdateDevice(ctx, "demo-gateway", models.DevicePatch{IsOnline: &online}); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}

	res, err := SeedDemoNetwork(ctx, st)
	if err != nil {
		t.Fatalf("second SeedDemoNetwork: %v", err)
	}
	if res != (Result{}) {
		t.Errorf("second run created %+v, want nothing", res)
	}

	gw, err := st.GetDevice(ctx, "demo-gateway")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if gw.IsOnline {
		t.Error("re-seed reset the gateway's live state")
	}

	devices, _ := st.ListDevices(ctx)
	if len(devices) != 12 {
		t.Errorf("len(devices) = %d after re-seed, want 12", len(devices))
	}
}

func TestSeedDemoNetwork_GroupsResolve(t *testing.T) {
	st := inventory.NewMemoryStore()
	ctx := context.Background()

	if _, err := SeedDemoNetwork(ctx, st); err != nil {
		t.Fatalf("SeedDemoNetwork: %v", err)
	}

	groups, _ := st.ListGroups(ctx)
	devices, _ := st.ListDevices(ctx)
	grouped, ungrouped := inventory.GroupDevices(groups, devices)

	total := len(ungrouped)
	for _, g := range grouped {
		total += len(g.Devices)
	}
	if total != len(devices) {
		t.Errorf("grouped %d devices, want %d", total, len(devices))
	}
	if len(ungrouped) != 1 || ungrouped[0].ID != "demo-unknown" {
		t.Errorf("ungrouped = %v, want only demo-unknown", ungrouped)
	}
}
