package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/google/uuid"
)

// Compile-time interface guard.
var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on the inventory_* tables.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by db. Run Migrations first.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const deviceColumns = `id, name, address, description, category, group_id, is_online, last_seen, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d        models.Device
		category string
		groupID  sql.NullString
		online   int
		lastSeen sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &d.Name, &d.Address, &d.Description, &category,
		&groupID, &online, &lastSeen, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Category = models.ParseCategory(category)
	d.IsOnline = online != 0
	if groupID.Valid {
		g := groupID.String
		d.GroupID = &g
	}
	if lastSeen.Valid {
		ts := lastSeen.Time.UTC()
		d.LastSeen = &ts
	}
	return &d, nil
}

// -- Devices --

// ListDevices returns all devices ordered by name.
func (s *SQLStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM inventory_devices ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// GetDevice returns a device by ID.
func (s *SQLStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM inventory_devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// CreateDevice inserts d, assigning an ID and timestamps when unset.
func (s *SQLStore) CreateDevice(ctx context.Context, d *models.Device) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Address, d.Description, string(d.Category),
		nullString(d.GroupID), boolInt(d.IsOnline), nullTime(d.LastSeen), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// UpdateDevice reads, patches and writes the device in one transaction.
func (s *SQLStore) UpdateDevice(ctx context.Context, id string, patch models.DevicePatch) (*models.Device, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update device: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	current, err := scanDevice(tx.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM inventory_devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load device for update: %w", err)
	}

	updated := patch.Apply(*current)
	if !updated.Category.Valid() {
		return nil, fmt.Errorf("update device: %w: %q", ErrInvalidCategory, updated.Category)
	}
	updated.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_devices
		SET name = ?, address = ?, description = ?, category = ?, group_id = ?,
			is_online = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`,
		updated.Name, updated.Address, updated.Description, string(updated.Category),
		nullString(updated.GroupID), boolInt(updated.IsOnline), nullTime(updated.LastSeen),
		updated.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update device: %w", err)
	}
	return &updated, nil
}

// DeleteDevice removes a device. Deleting a missing device is not an error.
func (s *SQLStore) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventory_devices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// -- Groups --

// ListGroups returns all groups ordered by name.
func (s *SQLStore) ListGroups(ctx context.Context) ([]models.DeviceGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM inventory_groups ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.DeviceGroup
	for rows.Next() {
		var g models.DeviceGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup returns a group by ID.
func (s *SQLStore) GetGroup(ctx context.Context, id string) (*models.DeviceGroup, error) {
	var g models.DeviceGroup
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM inventory_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// CreateGroup inserts g, assigning an ID when unset.
func (s *SQLStore) CreateGroup(ctx context.Context, g *models.DeviceGroup) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory_groups (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group. Member devices keep existing with a NULL
// group_id (ON DELETE SET NULL).
func (s *SQLStore) DeleteGroup(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventory_groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// -- Users --

// ListUsers returns all users ordered by username.
func (s *SQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, notifications_enabled FROM inventory_users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u       models.User
			enabled int
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &enabled); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.NotificationsEnabled = enabled != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var (
		u       models.User
		enabled int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, notifications_enabled FROM inventory_users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.NotificationsEnabled = enabled != 0
	return &u, nil
}

// CreateUser inserts u, assigning an ID when unset.
func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory_users (id, username, email, notifications_enabled) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, boolInt(u.NotificationsEnabled),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SetNotifications updates a user's notification preference.
func (s *SQLStore) SetNotifications(ctx context.Context, userID string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_users SET notifications_enabled = ? WHERE id = ?`,
		boolInt(enabled), userID,
	)
	if err != nil {
		return fmt.Errorf("set notifications: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
