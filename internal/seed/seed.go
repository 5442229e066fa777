// Package seed populates a store with a small demo fleet so the liveness
// pipeline has something to watch out of the box.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/devwatch/internal/inventory"
	"github.com/HerbHall/devwatch/pkg/models"
)

// Result counts the records SeedDemoNetwork created on this run.
type Result struct {
	Groups  int
	Devices int
	Users   int
}

// SeedDemoNetwork populates st with demo groups, devices and users. It is
// idempotent: records carry fixed IDs and existing ones are left untouched,
// so re-running is safe and never resets live state.
func SeedDemoNetwork(ctx context.Context, st inventory.Store) (Result, error) {
	var res Result
	now := time.Now().UTC()

	for _, g := range demoGroups(now) {
		created, err := ensureGroup(ctx, st, g)
		if err != nil {
			return res, fmt.Errorf("seed group %s: %w", g.Name, err)
		}
		if created {
			res.Groups++
		}
	}

	for _, d := range demoDevices(now) {
		created, err := ensureDevice(ctx, st, d)
		if err != nil {
			return res, fmt.Errorf("seed device %s: %w", d.Name, err)
		}
		if created {
			res.Devices++
		}
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("seed users: %w", err)
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.Username] = true
	}
	for _, u := range demoUsers() {
		if known[u.Username] {
			continue
		}
		if err := st.CreateUser(ctx, &u); err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		res.Users++
	}

	return res, nil
}

func ensureGroup(ctx context.Context, st inventory.Store, g models.DeviceGroup) (bool, error) {
	_, err := st.GetGroup(ctx, g.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return false, err
	}
	return true, st.CreateGroup(ctx, &g)
}

func ensureDevice(ctx context.Context, st inventory.Store, d models.Device) (bool, error) {
	_, err := st.GetDevice(ctx, d.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return false, err
	}
	return true, st.CreateDevice(ctx, &d)
}

func demoGroups(now time.Time) []models.DeviceGroup {
	return []models.DeviceGroup{
		{ID: "demo-grp-closet", Name: "Network Closet", Description: "Core network gear", CreatedAt: now},
		{ID: "demo-grp-office", Name: "Office", Description: "Desks and shared peripherals", CreatedAt: now},
		{ID: "demo-grp-home", Name: "Living Room", Description: "Media and smart home", CreatedAt: now},
	}
}

// demoDevices returns a dozen devices representing a small office network.
func demoDevices(now time.Time) []models.Device {
	closet, office, home := "demo-grp-closet", "demo-grp-office", "demo-grp-home"
	seen := now.Add(-time.Minute)

	dev := func(id, name, addr, desc string, cat models.DeviceCategory, group *string, online bool) models.Device {
		d := models.Device{
			ID: id, Name: name, Address: addr, Description: desc,
			Category: cat, GroupID: group, IsOnline: online,
			CreatedAt: now.Add(-7 * 24 * time.Hour),
		}
		if online {
			d.LastSeen = &seen
		}
		return d
	}

	return []models.Device{
		dev("demo-gateway", "ubiquiti-gateway", "192.168.1.1", "Edge router", models.CategoryRouter, &closet, true),
		dev("demo-core-switch", "cisco-switch-01", "192.168.1.2", "Core switch", models.CategorySwitch, &closet, true),
		dev("demo-edge-switch", "tp-link-switch", "192.168.1.3", "", models.CategorySwitch, &home, true),
		dev("demo-ap-hall", "unifi-ap-hall", "192.168.1.5", "Hallway ceiling", models.CategoryAccessPoint, &closet, true),
		dev("demo-nas", "synology-nas", "192.168.1.10", "Backups and media", models.CategoryServer, &closet, true),
		dev("demo-proxmox", "proxmox-host", "192.168.1.11", "Virtualization host", models.CategoryServer, &closet, true),
		dev("demo-desktop", "dev-workstation", "192.168.1.50", "", models.CategoryWorkstation, &office, true),
		dev("demo-laptop", "macbook-pro", "192.168.1.51", "", models.CategoryWorkstation, &office, false),
		dev("demo-printer", "hp-laserjet", "192.168.1.60", "Second floor", models.CategoryPrinter, &office, true),
		dev("demo-camera", "front-door-cam", "192.168.1.70", "", models.CategoryCamera, &home, true),
		dev("demo-thermostat", "nest-thermostat", "192.168.1.80", "", models.CategoryIoT, &home, false),
		dev("demo-unknown", "unknown-device", "192.168.1.99", "Unidentified DHCP lease", models.CategoryOther, nil, false),
	}
}

func demoUsers() []models.User {
	return []models.User{
		{ID: "demo-user-admin", Username: "admin", Email: "admin@example.com", NotificationsEnabled: true},
		{ID: "demo-user-ops", Username: "ops", Email: "ops@example.com", NotificationsEnabled: true},
		{ID: "demo-user-viewer", Username: "viewer", Email: "viewer@example.com", NotificationsEnabled: false},
	}
}
