package inventory

import (
	"database/sql"

	"github.com/HerbHall/devwatch/pkg/plugin"
)

// Migrations returns the inventory schema, applied under the "inventory" component.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create inventory tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS inventory_groups (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE IF NOT EXISTS inventory_devices (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						address TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						category TEXT NOT NULL DEFAULT 'other',
						group_id TEXT REFERENCES inventory_groups(id) ON DELETE SET NULL,
						is_online INTEGER NOT NULL DEFAULT 0,
						last_seen DATETIME,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_inventory_devices_group ON inventory_devices(group_id)`,
					`CREATE TABLE IF NOT EXISTS inventory_users (
						id TEXT PRIMARY KEY,
						username TEXT NOT NULL UNIQUE,
						email TEXT NOT NULL DEFAULT '',
						notifications_enabled INTEGER NOT NULL DEFAULT 1
					)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
