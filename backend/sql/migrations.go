package sqlbackend

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema generation this package knows how to
// read and write (spec.md §4.4: "migrations run to the current
// SCHEMA_VERSION").
const SchemaVersion = 1

// migration is one forward-only schema step, modeled on beads'
// internal/storage/sqlite/migrations "ordered {version, up}" shape.
type migration struct {
	version int64
	up      func(*sql.Tx) error
}

var migrations = []migration{
	{version: 1, up: migrateV1},
}

// runMigrations brings db up to SchemaVersion, applying every migration
// whose version is greater than what's recorded. Unknown (future) versions
// already present are rejected, matching the in-memory backend's
// unknown-_v rejection (spec.md §6.2/§6.3).
func runMigrations(db *sql.DB, d Dialect) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version BIGINT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("backend/sql: create schema_version: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: on-disk version %d, this build knows up to %d", ErrUnknownSchemaVersion, current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("backend/sql: begin migration %d: %w", m.version, err)
		}
		if err := m.up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("backend/sql: migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(d.rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("backend/sql: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("backend/sql: commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

func currentVersion(db *sql.DB) (int64, error) {
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("backend/sql: read schema_version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return v.Int64, nil
}

// migrateV1 creates the full schema of spec.md §6.3. Every statement uses
// portable DDL (no AUTOINCREMENT/SERIAL, no dialect-specific BLOB/BYTEA
// type — private key bytes are stored base64-encoded in TEXT, see
// Backend.StorePrivateKey in backend.go) so it runs unmodified against
// SQLite, MySQL, and Postgres.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id VARCHAR(64) PRIMARY KEY,
			tree_id VARCHAR(64) NOT NULL,
			is_root BIGINT NOT NULL,
			verification_status BIGINT NOT NULL,
			entry_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tree_parents (
			child_id VARCHAR(64) NOT NULL,
			parent_id VARCHAR(64) NOT NULL,
			PRIMARY KEY (child_id, parent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS store_memberships (
			entry_id VARCHAR(64) NOT NULL,
			store_name VARCHAR(255) NOT NULL,
			PRIMARY KEY (entry_id, store_name)
		)`,
		`CREATE TABLE IF NOT EXISTS store_parents (
			child_id VARCHAR(64) NOT NULL,
			parent_id VARCHAR(64) NOT NULL,
			store_name VARCHAR(255) NOT NULL,
			PRIMARY KEY (child_id, parent_id, store_name)
		)`,
		`CREATE TABLE IF NOT EXISTS heights (
			entry_id VARCHAR(64) NOT NULL,
			tree_id VARCHAR(64) NOT NULL,
			store_name VARCHAR(255) NOT NULL DEFAULT '',
			height BIGINT NOT NULL,
			PRIMARY KEY (entry_id, tree_id, store_name)
		)`,
		`CREATE TABLE IF NOT EXISTS tips (
			entry_id VARCHAR(64) NOT NULL,
			tree_id VARCHAR(64) NOT NULL,
			store_name VARCHAR(255) NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, tree_id, store_name)
		)`,
		`CREATE TABLE IF NOT EXISTS private_keys (
			key_name VARCHAR(255) PRIMARY KEY,
			key_bytes TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crdt_cache (
			entry_id VARCHAR(64) NOT NULL,
			store_name VARCHAR(255) NOT NULL,
			state TEXT NOT NULL,
			PRIMARY KEY (entry_id, store_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_tree ON entries (tree_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_status ON entries (verification_status)`,
		`CREATE INDEX IF NOT EXISTS idx_tree_parents_parent ON tree_parents (parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_store_parents_parent ON store_parents (parent_id, store_name)`,
		`CREATE INDEX IF NOT EXISTS idx_store_memberships_store ON store_memberships (store_name)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}
	return nil
}
