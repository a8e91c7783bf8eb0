// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	xlog "github.com/kestrelfx/stax/internal/log"
)

// HashPassword returns the catalog's stored form of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// currentSchema is the full DDL for a brand-new catalog. Existing databases
// never see this; they are brought forward step by step by the migration
// engine instead.
const currentSchema = `
CREATE TABLE IF NOT EXISTS stacks (
	stack_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	path TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lists (
	list_id INTEGER PRIMARY KEY AUTOINCREMENT,
	stack_fk INTEGER NOT NULL,
	parent_list_fk INTEGER,
	name TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (stack_fk) REFERENCES stacks(stack_id) ON DELETE CASCADE,
	FOREIGN KEY (parent_list_fk) REFERENCES lists(list_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS elements (
	element_id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_fk INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL CHECK(type IN ('2D', '3D', 'Toolset')),
	filepath_soft TEXT,
	filepath_hard TEXT,
	is_hard_copy BOOLEAN NOT NULL DEFAULT 0,
	frame_range TEXT,
	format TEXT,
	comment TEXT,
	tags TEXT,
	preview_path TEXT,
	gif_preview_path TEXT,
	video_preview_path TEXT,
	geometry_preview_path TEXT,
	is_deprecated BOOLEAN DEFAULT 0,
	file_size INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (list_fk) REFERENCES lists(list_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS favorites (
	favorite_id INTEGER PRIMARY KEY AUTOINCREMENT,
	element_fk INTEGER NOT NULL,
	machine_name TEXT NOT NULL,
	user_name TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (element_fk) REFERENCES elements(element_id) ON DELETE CASCADE,
	UNIQUE(element_fk, machine_name, user_name)
);

CREATE TABLE IF NOT EXISTS playlists (
	playlist_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	description TEXT,
	created_by TEXT,
	created_on_machine TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS playlist_items (
	item_id INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_fk INTEGER NOT NULL,
	element_fk INTEGER NOT NULL,
	order_index INTEGER DEFAULT 0,
	added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (playlist_fk) REFERENCES playlists(playlist_id) ON DELETE CASCADE,
	FOREIGN KEY (element_fk) REFERENCES elements(element_id) ON DELETE CASCADE,
	UNIQUE(playlist_fk, element_fk)
);

CREATE TABLE IF NOT EXISTS ingestion_history (
	history_id INTEGER PRIMARY KEY AUTOINCREMENT,
	element_fk INTEGER,
	action TEXT NOT NULL,
	source_path TEXT,
	target_list TEXT,
	status TEXT NOT NULL,
	message TEXT,
	ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (element_fk) REFERENCES elements(element_id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('admin', 'user')) DEFAULT 'user',
	email TEXT,
	is_active BOOLEAN DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_login TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_sessions (
	session_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_fk INTEGER NOT NULL,
	token TEXT UNIQUE,
	machine_name TEXT NOT NULL,
	login_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_activity TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	is_active BOOLEAN DEFAULT 1,
	FOREIGN KEY (user_fk) REFERENCES users(user_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lists_stack ON lists(stack_fk);
CREATE INDEX IF NOT EXISTS idx_lists_parent ON lists(parent_list_fk);
CREATE INDEX IF NOT EXISTS idx_elements_list ON elements(list_fk);
CREATE INDEX IF NOT EXISTS idx_elements_type ON elements(type);
CREATE INDEX IF NOT EXISTS idx_elements_name ON elements(name);
CREATE INDEX IF NOT EXISTS idx_elements_deprecated ON elements(is_deprecated);
CREATE INDEX IF NOT EXISTS idx_favorites_element ON favorites(element_fk);
CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(machine_name, user_name);
CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist ON playlist_items(playlist_fk);
CREATE INDEX IF NOT EXISTS idx_playlist_items_element ON playlist_items(element_fk);
CREATE INDEX IF NOT EXISTS idx_history_element ON ingestion_history(element_fk);
CREATE INDEX IF NOT EXISTS idx_history_status ON ingestion_history(status);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON user_sessions(user_fk);
`

// createSchema builds a brand-new catalog: full current schema, latest
// schema version, and a default admin account so a fresh deployment is
// immediately usable.
func (f *Factory) createSchema(ctx context.Context, db *sql.DB, path string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, currentSchema); err != nil {
		return &MigrationError{Step: "create_schema", Version: currentSchemaVersion, Err: err}
	}
	if err := writeSchemaVersion(ctx, tx, currentSchemaVersion); err != nil {
		return &MigrationError{Step: "create_schema", Version: currentSchemaVersion, Err: err}
	}
	if err := seedDefaultAdmin(ctx, tx); err != nil {
		return &MigrationError{Step: "seed_admin", Version: currentSchemaVersion, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &MigrationError{Step: "create_schema", Version: currentSchemaVersion, Err: err}
	}

	f.log.Info().
		Str(xlog.FieldDBPath, path).
		Int(xlog.FieldSchemaVersion, currentSchemaVersion).
		Msg("created new catalog database")
	return nil
}

// seedDefaultAdmin inserts the admin/admin bootstrap account when the users
// table is empty. Operators are expected to change the password immediately.
func seedDefaultAdmin(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		SELECT 'admin', ?, 'admin'
		WHERE NOT EXISTS (SELECT 1 FROM users)`,
		HashPassword("admin"))
	return err
}
