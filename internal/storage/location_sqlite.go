package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/druroland/myriad/internal/model"
)

const locationColumns = `id, name, network_cidr, description, created_at, updated_at`

// ListLocations returns all locations ordered by name
func (ss *SQLiteStorage) ListLocations() ([]model.Location, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.Query("SELECT " + locationColumns + " FROM locations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.NetworkCIDR, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}

	return locations, rows.Err()
}

// GetLocation retrieves a location by ID
func (ss *SQLiteStorage) GetLocation(id string) (*model.Location, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getLocation(id)
}

func (ss *SQLiteStorage) getLocation(id string) (*model.Location, error) {
	var l model.Location
	err := ss.db.QueryRow("SELECT "+locationColumns+" FROM locations WHERE id = ?", id).
		Scan(&l.ID, &l.Name, &l.NetworkCIDR, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying location: %w", err)
	}
	return &l, nil
}

// CreateLocation adds a new location
func (ss *SQLiteStorage) CreateLocation(location *model.Location) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	location.CreatedAt = now
	location.UpdatedAt = now

	_, err := ss.db.Exec(`
		INSERT INTO locations (id, name, network_cidr, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, location.ID, location.Name, location.NetworkCIDR, location.Description,
		location.CreatedAt, location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting location: %w", err)
	}

	return nil
}

// UpdateLocation updates an existing location
func (ss *SQLiteStorage) UpdateLocation(location *model.Location) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	location.UpdatedAt = time.Now()

	result, err := ss.db.Exec(`
		UPDATE locations
		SET name = ?, network_cidr = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, location.Name, location.NetworkCIDR, location.Description, location.UpdatedAt, location.ID)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrLocationNotFound
	}

	return nil
}

// DeleteLocation removes a location together with the hosts and
// hypervisors it owns. Guest machines follow their hypervisor.
func (ss *SQLiteStorage) DeleteLocation(id string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM hosts WHERE location_id = ?", id); err != nil {
		return fmt.Errorf("deleting location hosts: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM hypervisors WHERE location_id = ?", id); err != nil {
		return fmt.Errorf("deleting location hypervisors: %w", err)
	}

	result, err := tx.Exec("DELETE FROM locations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrLocationNotFound
	}

	return tx.Commit()
}

// EnsureLocation creates the location if it does not exist yet and
// refreshes its declared attributes if it does. Used to seed locations
// from the settings file at startup.
func (ss *SQLiteStorage) EnsureLocation(location *model.Location) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	existing, err := ss.getLocation(location.ID)
	if err != nil && err != ErrLocationNotFound {
		return err
	}

	now := time.Now()

	if err == ErrLocationNotFound {
		location.CreatedAt = now
		location.UpdatedAt = now
		_, err := ss.db.Exec(`
			INSERT INTO locations (id, name, network_cidr, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, location.ID, location.Name, location.NetworkCIDR, location.Description,
			location.CreatedAt, location.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting location: %w", err)
		}
		return nil
	}

	location.CreatedAt = existing.CreatedAt
	location.UpdatedAt = now
	_, err = ss.db.Exec(`
		UPDATE locations
		SET name = ?, network_cidr = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, location.Name, location.NetworkCIDR, location.Description, location.UpdatedAt, location.ID)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}

	return nil
}
