package storage

import (
	"database/sql"
	"fmt"
)

// Schema version history:
//   1 - initial schema (locations, hosts)
//   2 - virtualization tables (hypervisors, virtual_machines, vm_snapshots)
const currentSchemaVersion = 2

// runMigrations brings an existing database up to the current schema
// version. schema.sql creates the full current shape with IF NOT EXISTS,
// so a fresh database only needs its version recorded.
func (ss *SQLiteStorage) runMigrations() error {
	var version sql.NullInt64
	err := ss.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("checking migration version: %w", err)
	}

	if version.Valid && version.Int64 >= currentSchemaVersion {
		return nil
	}

	if !version.Valid {
		// Fresh database, schema.sql already created the current shape
		_, err := ss.db.Exec("INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)",
			currentSchemaVersion)
		if err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
		return nil
	}

	if version.Int64 < 2 {
		if err := ss.migrateToV2(); err != nil {
			return fmt.Errorf("migrating to v2: %w", err)
		}
	}

	return nil
}

// migrateToV2 adds the virtualization tables to a v1 database. The
// tables are created by schema.sql on startup, so only the version
// record is missing.
func (ss *SQLiteStorage) migrateToV2() error {
	_, err := ss.db.Exec("INSERT OR IGNORE INTO schema_migrations (version) VALUES (2)")
	return err
}
