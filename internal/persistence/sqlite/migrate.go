// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/kestrelfx/stax/internal/metrics"
)

// currentSchemaVersion is bumped whenever a migration is appended.
const currentSchemaVersion = 9

// A migration brings an existing catalog one step forward. Every apply must
// be idempotent under races: two hosts can both decide to run the same step
// on a shared file, and the loser's "duplicate column" / "already exists"
// failure is success, not an error.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{1, "lists_parent_ref", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx,
			`ALTER TABLE lists ADD COLUMN parent_list_fk INTEGER`,
			`CREATE INDEX IF NOT EXISTS idx_lists_parent ON lists(parent_list_fk)`)
	}},
	{2, "elements_gif_preview", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx, `ALTER TABLE elements ADD COLUMN gif_preview_path TEXT`)
	}},
	{3, "elements_video_preview", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx, `ALTER TABLE elements ADD COLUMN video_preview_path TEXT`)
	}},
	{4, "elements_geometry_preview", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx, `ALTER TABLE elements ADD COLUMN geometry_preview_path TEXT`)
	}},
	{5, "users_table", func(ctx context.Context, tx *sql.Tx) error {
		err := execTolerant(ctx, tx,
			`CREATE TABLE users (
				user_id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL CHECK(role IN ('admin', 'user')) DEFAULT 'user',
				email TEXT,
				is_active BOOLEAN DEFAULT 1,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				last_login TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`)
		if err != nil {
			return err
		}
		return seedDefaultAdmin(ctx, tx)
	}},
	{6, "user_sessions_table", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx,
			`CREATE TABLE user_sessions (
				session_id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_fk INTEGER NOT NULL,
				token TEXT UNIQUE,
				machine_name TEXT NOT NULL,
				login_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				last_activity TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				is_active BOOLEAN DEFAULT 1,
				FOREIGN KEY (user_fk) REFERENCES users(user_id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_user ON user_sessions(user_fk)`)
	}},
	{7, "playlists_creator_columns", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx,
			`ALTER TABLE playlists ADD COLUMN created_by TEXT`,
			`ALTER TABLE playlists ADD COLUMN created_on_machine TEXT`)
	}},
	{8, "playlist_items_shape", migratePlaylistItemsShape},
	{9, "settings_table", func(ctx context.Context, tx *sql.Tx) error {
		return execTolerant(ctx, tx,
			`CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`)
	}},
}

// migrate brings the database to the current schema. Fresh files get the
// full schema in one shot; existing files get every versioned step above
// their recorded version, each inside its own transaction while the
// advisory lock is held.
func (f *Factory) migrate(ctx context.Context, db *sql.DB, path string, fresh bool) error {
	if fresh {
		return f.createSchema(ctx, db, path)
	}

	if err := ensureVersionTable(ctx, db); err != nil {
		return &MigrationError{Step: "version_table", Err: err}
	}

	for _, m := range migrations {
		applied, err := f.applyStep(ctx, db, m)
		if err != nil {
			return err
		}
		if applied {
			metrics.MigrationApplyTotal.WithLabelValues(m.name).Inc()
			f.log.Info().
				Str(xlog.FieldDBPath, path).
				Str(xlog.FieldMigration, m.name).
				Int(xlog.FieldSchemaVersion, m.version).
				Msg("applied schema migration")
		}
	}
	return nil
}

// applyStep runs one migration transactionally if the recorded version is
// behind it. The version is re-read inside the transaction so two racing
// hosts serialize on the row and the loser skips cleanly.
func (f *Factory) applyStep(ctx context.Context, db *sql.DB, m migration) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, &MigrationError{Step: m.name, Version: m.version, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version); err != nil {
		return false, &MigrationError{Step: m.name, Version: m.version, Err: err}
	}
	if version >= m.version {
		return false, nil
	}

	if err := m.apply(ctx, tx); err != nil {
		return false, &MigrationError{Step: m.name, Version: m.version, Err: err}
	}
	if err := writeSchemaVersion(ctx, tx, m.version); err != nil {
		return false, &MigrationError{Step: m.name, Version: m.version, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return false, &MigrationError{Step: m.name, Version: m.version, Err: err}
	}
	return true, nil
}

// SchemaVersion reads the recorded schema version of an open connection.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// ensureVersionTable bootstraps the version marker on databases created
// before explicit versioning existed. Those start at 0 and rely on every
// step's idempotence to skip work that probe-era code already did.
func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO schema_version (version)
		 SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM schema_version)`)
	return err
}

func writeSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if _, err := tx.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version)
		return err
	}
	return nil
}

// execTolerant runs each statement, swallowing the "already applied by a
// racing host" class of engine errors per statement.
func execTolerant(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !isAlreadyApplied(err) {
			return err
		}
	}
	return nil
}

// migratePlaylistItemsShape rebuilds playlist_items into the
// item_id/order_index/added_at shape, copying rows from older column
// layouts where possible. Databases without the table skip the step.
func migratePlaylistItemsShape(ctx context.Context, tx *sql.Tx) error {
	var name string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='playlist_items'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	cols, err := tableColumns(ctx, tx, "playlist_items")
	if err != nil {
		return err
	}
	if cols["item_id"] {
		return nil // already current
	}

	if err := execTolerant(ctx, tx,
		`CREATE TABLE IF NOT EXISTS playlist_items_new (
			item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_fk INTEGER NOT NULL,
			element_fk INTEGER NOT NULL,
			order_index INTEGER DEFAULT 0,
			added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (playlist_fk) REFERENCES playlists(playlist_id) ON DELETE CASCADE,
			FOREIGN KEY (element_fk) REFERENCES elements(element_id) ON DELETE CASCADE,
			UNIQUE(playlist_fk, element_fk)
		)`); err != nil {
		return err
	}

	playlistCol := "playlist_fk"
	if !cols["playlist_fk"] {
		playlistCol = "playlist"
	}
	elementCol := "element_fk"
	if !cols["element_fk"] {
		elementCol = "element"
	}
	orderExpr := "0"
	switch {
	case cols["order_index"]:
		orderExpr = "order_index"
	case cols["sort_order"]:
		orderExpr = "sort_order"
	}

	copyStmt := fmt.Sprintf(
		`INSERT INTO playlist_items_new (playlist_fk, element_fk, order_index)
		 SELECT %s, %s, %s FROM playlist_items`, playlistCol, elementCol, orderExpr)
	if _, err := tx.ExecContext(ctx, copyStmt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE playlist_items`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE playlist_items_new RENAME TO playlist_items`)
	return err
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
