package storage

import (
	"database/sql"
	"embed"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/druroland/myriad/internal/mac"
	"github.com/druroland/myriad/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

const hostColumns = `id, mac_address, hostname, display_name, ip_address, host_type,
       status, discovery_source, location_id, is_static_lease, lease_expires,
       vendor, model, first_seen, last_seen, notes, created_at, updated_at`

// SQLiteStorage implements Storage with SQLite backend
type SQLiteStorage struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite-based storage
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "myriad.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := ss.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := ss.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return ss, nil
}

// initSchema creates the database schema
func (ss *SQLiteStorage) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	_, err = ss.db.Exec(string(schema))
	return err
}

// Close closes the database connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// GetDatabasePath returns the database file path
func (ss *SQLiteStorage) GetDatabasePath() string {
	return ss.path
}

// ListHosts returns hosts matching the filter plus the total match count
func (ss *SQLiteStorage) ListHosts(filter *model.HostFilter) ([]model.Host, int, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	where := ""
	var args []interface{}

	if filter != nil {
		var clauses []string
		if filter.LocationID != "" {
			clauses = append(clauses, "location_id = ?")
			args = append(args, filter.LocationID)
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = ?")
			args = append(args, string(filter.Status))
		}
		for i, clause := range clauses {
			if i == 0 {
				where = " WHERE " + clause
			} else {
				where += " AND " + clause
			}
		}
	}

	var total int
	if err := ss.db.QueryRow("SELECT COUNT(*) FROM hosts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting hosts: %w", err)
	}

	query := "SELECT " + hostColumns + " FROM hosts" + where +
		" ORDER BY last_seen IS NULL, last_seen DESC, hostname"
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := ss.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying hosts: %w", err)
	}
	defer rows.Close()

	hosts, err := scanHosts(rows)
	if err != nil {
		return nil, 0, err
	}

	return hosts, total, nil
}

// GetHost retrieves a host by ID
func (ss *SQLiteStorage) GetHost(id int64) (*model.Host, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getHost("id = ?", id)
}

// GetHostByMAC retrieves a host by MAC address. The address is
// canonicalized before the lookup, so any equivalent format finds the
// same host.
func (ss *SQLiteStorage) GetHostByMAC(address string) (*model.Host, error) {
	normalized, err := mac.Normalize(address)
	if err != nil {
		return nil, err
	}

	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getHost("mac_address = ?", normalized)
}

func (ss *SQLiteStorage) getHost(clause string, arg interface{}) (*model.Host, error) {
	rows, err := ss.db.Query("SELECT "+hostColumns+" FROM hosts WHERE "+clause+" LIMIT 1", arg)
	if err != nil {
		return nil, fmt.Errorf("querying host: %w", err)
	}
	defer rows.Close()

	hosts, err := scanHosts(rows)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, ErrHostNotFound
	}
	return &hosts[0], nil
}

// CreateHost adds a new host. The MAC address must already be canonical.
func (ss *SQLiteStorage) CreateHost(host *model.Host) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var exists bool
	err := ss.db.QueryRow("SELECT EXISTS(SELECT 1 FROM hosts WHERE mac_address = ?)", host.MACAddress).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking MAC uniqueness: %w", err)
	}
	if exists {
		return ErrDuplicateMAC
	}

	now := time.Now()
	host.CreatedAt = now
	host.UpdatedAt = now
	if host.HostType == "" {
		host.HostType = model.HostTypeUnknown
	}
	if host.Status == "" {
		host.Status = model.HostStatusUnknown
	}
	if host.Source == "" {
		host.Source = model.SourceManual
	}

	result, err := ss.db.Exec(`
		INSERT INTO hosts (mac_address, hostname, display_name, ip_address, host_type,
		                   status, discovery_source, location_id, is_static_lease, lease_expires,
		                   vendor, model, first_seen, last_seen, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, host.MACAddress, host.Hostname, host.DisplayName, host.IPAddress, string(host.HostType),
		string(host.Status), string(host.Source), host.LocationID, host.IsStaticLease, host.LeaseExpires,
		host.Vendor, host.Model, host.FirstSeen, host.LastSeen, host.Notes, host.CreatedAt, host.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting host: %w", err)
	}

	host.ID, err = result.LastInsertId()
	return err
}

// UpdateHost updates an existing host with the full row contents
func (ss *SQLiteStorage) UpdateHost(host *model.Host) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var otherID int64
	err := ss.db.QueryRow("SELECT id FROM hosts WHERE mac_address = ? AND id != ?",
		host.MACAddress, host.ID).Scan(&otherID)
	if err == nil {
		return ErrDuplicateMAC
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking MAC uniqueness: %w", err)
	}

	host.UpdatedAt = time.Now()

	result, err := ss.db.Exec(`
		UPDATE hosts
		SET mac_address = ?, hostname = ?, display_name = ?, ip_address = ?, host_type = ?,
		    status = ?, discovery_source = ?, location_id = ?, is_static_lease = ?, lease_expires = ?,
		    vendor = ?, model = ?, first_seen = ?, last_seen = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, host.MACAddress, host.Hostname, host.DisplayName, host.IPAddress, string(host.HostType),
		string(host.Status), string(host.Source), host.LocationID, host.IsStaticLease, host.LeaseExpires,
		host.Vendor, host.Model, host.FirstSeen, host.LastSeen, host.Notes, host.UpdatedAt, host.ID)
	if err != nil {
		return fmt.Errorf("updating host: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrHostNotFound
	}

	return nil
}

// DeleteHost removes a host
func (ss *SQLiteStorage) DeleteHost(id int64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	result, err := ss.db.Exec("DELETE FROM hosts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting host: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrHostNotFound
	}

	return nil
}

// UpsertHostFromDiscovery creates or refreshes a host from a discovery
// observation, keyed by the canonical MAC address. Returns true when a
// new host was created. User-edited fields (display name, notes,
// manually assigned location) are never overwritten by discovery data.
func (ss *SQLiteStorage) UpsertHostFromDiscovery(discovered *model.DiscoveredHost) (bool, error) {
	normalized, err := mac.Normalize(discovered.MACAddress)
	if err != nil {
		return false, err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()

	host, err := ss.getHost("mac_address = ?", normalized)
	if err != nil && err != ErrHostNotFound {
		return false, err
	}

	if err == ErrHostNotFound {
		host = &model.Host{
			MACAddress:    normalized,
			Hostname:      discovered.Hostname,
			HostType:      model.HostTypeUnknown,
			Status:        model.HostStatusOnline,
			Source:        discovered.Source,
			LocationID:    discovered.LocationID,
			IsStaticLease: discovered.IsStatic,
			LeaseExpires:  discovered.LeaseExpires,
			FirstSeen:     &now,
			LastSeen:      &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if discovered.IPAddress != "" {
			ip := discovered.IPAddress
			host.IPAddress = &ip
		}

		result, err := ss.db.Exec(`
			INSERT INTO hosts (mac_address, hostname, ip_address, host_type, status,
			                   discovery_source, location_id, is_static_lease, lease_expires,
			                   first_seen, last_seen, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, host.MACAddress, host.Hostname, host.IPAddress, string(host.HostType), string(host.Status),
			string(host.Source), host.LocationID, host.IsStaticLease, host.LeaseExpires,
			host.FirstSeen, host.LastSeen, host.CreatedAt, host.UpdatedAt)
		if err != nil {
			return false, fmt.Errorf("inserting discovered host: %w", err)
		}
		host.ID, _ = result.LastInsertId()
		return true, nil
	}

	// Refresh lease data unconditionally
	if discovered.IPAddress != "" {
		ip := discovered.IPAddress
		host.IPAddress = &ip
	} else {
		host.IPAddress = nil
	}
	host.IsStaticLease = discovered.IsStatic
	host.LeaseExpires = discovered.LeaseExpires
	host.Status = model.HostStatusOnline
	host.LastSeen = &now
	if host.FirstSeen == nil {
		host.FirstSeen = &now
	}

	// The discovered hostname only fills in when the user has not named
	// the host themselves
	if discovered.Hostname != nil && *discovered.Hostname != "" && host.DisplayName == nil {
		host.Hostname = discovered.Hostname
	}

	// A configured location only applies when none was assigned yet
	if discovered.LocationID != nil && host.LocationID == nil {
		host.LocationID = discovered.LocationID
	}

	host.UpdatedAt = now

	_, err = ss.db.Exec(`
		UPDATE hosts
		SET hostname = ?, ip_address = ?, status = ?, location_id = ?,
		    is_static_lease = ?, lease_expires = ?, first_seen = ?, last_seen = ?, updated_at = ?
		WHERE id = ?
	`, host.Hostname, host.IPAddress, string(host.Status), host.LocationID,
		host.IsStaticLease, host.LeaseExpires, host.FirstSeen, host.LastSeen, host.UpdatedAt, host.ID)
	if err != nil {
		return false, fmt.Errorf("updating discovered host: %w", err)
	}

	return false, nil
}

// HostStats returns aggregate host counters
func (ss *SQLiteStorage) HostStats() (*model.HostStats, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	stats := &model.HostStats{}
	err := ss.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'online' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_static_lease = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_static_lease = 0 THEN 1 ELSE 0 END), 0)
		FROM hosts
	`).Scan(&stats.Total, &stats.Online, &stats.StaticLeases, &stats.DynamicLeases)
	if err != nil {
		return nil, fmt.Errorf("querying host stats: %w", err)
	}

	// Anything not known to be online counts as offline
	stats.Offline = stats.Total - stats.Online

	return stats, nil
}

func scanHosts(rows *sql.Rows) ([]model.Host, error) {
	var hosts []model.Host

	for rows.Next() {
		var h model.Host
		err := rows.Scan(&h.ID, &h.MACAddress, &h.Hostname, &h.DisplayName, &h.IPAddress, &h.HostType,
			&h.Status, &h.Source, &h.LocationID, &h.IsStaticLease, &h.LeaseExpires,
			&h.Vendor, &h.Model, &h.FirstSeen, &h.LastSeen, &h.Notes, &h.CreatedAt, &h.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning host: %w", err)
		}
		hosts = append(hosts, h)
	}

	return hosts, rows.Err()
}
