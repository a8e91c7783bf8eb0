// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legacySchema is what probe-era catalogs looked like before any migration:
// no nested lists, no extra preview columns, no users/sessions/settings, and
// playlist_items with the old column names.
const legacySchema = `
CREATE TABLE stacks (
	stack_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	path TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE lists (
	list_id INTEGER PRIMARY KEY AUTOINCREMENT,
	stack_fk INTEGER NOT NULL,
	name TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE elements (
	element_id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_fk INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	filepath_soft TEXT,
	filepath_hard TEXT,
	is_hard_copy BOOLEAN NOT NULL DEFAULT 0,
	frame_range TEXT,
	format TEXT,
	comment TEXT,
	tags TEXT,
	preview_path TEXT,
	is_deprecated BOOLEAN DEFAULT 0,
	file_size INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE favorites (
	favorite_id INTEGER PRIMARY KEY AUTOINCREMENT,
	element_fk INTEGER NOT NULL,
	machine_name TEXT NOT NULL,
	user_name TEXT
);
CREATE TABLE playlists (
	playlist_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	description TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE playlist_items (
	playlist INTEGER NOT NULL,
	element INTEGER NOT NULL,
	sort_order INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE ingestion_history (
	history_id INTEGER PRIMARY KEY AUTOINCREMENT,
	element_fk INTEGER,
	action TEXT NOT NULL,
	source_path TEXT,
	target_list TEXT,
	status TEXT NOT NULL,
	message TEXT,
	ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// writeLegacyDB creates a pre-versioning catalog file directly, bypassing
// the factory the way an old deployment would have.
func writeLegacyDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(legacySchema)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO playlists (name) VALUES ('dailies')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO playlist_items (playlist, element, sort_order) VALUES (1, 10, 2), (1, 11, 1)`)
	require.NoError(t, err)
}

func TestMigrateLegacyDatabase(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "legacy.db")
	writeLegacyDB(t, dbPath)

	f := NewFactory(testConfig(root))
	conn, err := f.Connect(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	version, err := SchemaVersion(context.Background(), conn.DB())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	// New columns are queryable.
	for _, q := range []string{
		`SELECT parent_list_fk FROM lists LIMIT 1`,
		`SELECT gif_preview_path FROM elements LIMIT 1`,
		`SELECT video_preview_path FROM elements LIMIT 1`,
		`SELECT geometry_preview_path FROM elements LIMIT 1`,
		`SELECT created_by, created_on_machine FROM playlists LIMIT 1`,
		`SELECT key, value FROM settings LIMIT 1`,
	} {
		rows, err := conn.DB().Query(q)
		require.NoError(t, err, q)
		_ = rows.Close()
	}

	// The users step seeds the bootstrap admin.
	var admins int
	require.NoError(t, conn.DB().QueryRow(
		`SELECT COUNT(*) FROM users WHERE username = 'admin'`).Scan(&admins))
	assert.Equal(t, 1, admins)

	// playlist_items rows survived the shape rebuild, order preserved.
	rows, err := conn.DB().Query(
		`SELECT element_fk, order_index FROM playlist_items WHERE playlist_fk = 1 ORDER BY order_index`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var got [][2]int
	for rows.Next() {
		var e, o int
		require.NoError(t, rows.Scan(&e, &o))
		got = append(got, [2]int{e, o})
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, [][2]int{{11, 1}, {10, 2}}, got)
}

func TestMigrateIsIdempotent(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "legacy.db")
	writeLegacyDB(t, dbPath)

	f := NewFactory(testConfig(root))

	countColumns := func(db *sql.DB, table string) int {
		rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()
		n := 0
		for rows.Next() {
			n++
		}
		return n
	}

	conn, err := f.Connect(context.Background(), dbPath)
	require.NoError(t, err)
	firstCols := countColumns(conn.DB(), "elements")
	require.NoError(t, conn.Close())

	// Second connection must be a pure no-op: same version, same shape.
	conn, err = f.Connect(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	version, err := SchemaVersion(context.Background(), conn.DB())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	assert.Equal(t, firstCols, countColumns(conn.DB(), "elements"))
}

func TestMigrateToleratesRacingApply(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "legacy.db")
	writeLegacyDB(t, dbPath)

	// Another host applied some steps between our probe and apply: the DDL
	// landed but the version row still reads 0.
	raw, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`ALTER TABLE lists ADD COLUMN parent_list_fk INTEGER`)
	require.NoError(t, err)
	_, err = raw.Exec(`ALTER TABLE elements ADD COLUMN gif_preview_path TEXT`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	f := NewFactory(testConfig(root))
	conn, err := f.Connect(context.Background(), dbPath)
	require.NoError(t, err, "already-applied DDL must be treated as success")
	defer func() { _ = conn.Close() }()

	version, err := SchemaVersion(context.Background(), conn.DB())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestMigrateFailureAbortsConnection(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "broken.db")

	// A database missing a core table makes the first ALTER fail with a
	// non-race error, which must abort the whole connection attempt.
	raw, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE unrelated (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	f := NewFactory(testConfig(root))
	_, err = f.Connect(context.Background(), dbPath)

	var me *MigrationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "lists_parent_ref", me.Step)
}
