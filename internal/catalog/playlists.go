// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CreatePlaylist adds a shared playlist, recording who created it where.
func (s *Store) CreatePlaylist(ctx context.Context, name, description, createdBy, machine string) (int64, error) {
	var id int64
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO playlists (name, description, created_by, created_on_machine)
			 VALUES (?, ?, ?, ?)`, name, description, createdBy, machine)
		if err != nil {
			return fmt.Errorf("create playlist %s: %w", name, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Playlists returns all playlists with their item counts, newest first.
func (s *Store) Playlists(ctx context.Context) ([]Playlist, error) {
	var out []Playlist
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT p.playlist_id, p.name, p.description, p.created_by,
			       p.created_on_machine, p.created_at,
			       (SELECT COUNT(*) FROM playlist_items i WHERE i.playlist_fk = p.playlist_id)
			FROM playlists p ORDER BY p.created_at DESC, p.playlist_id DESC`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			p, err := scanPlaylist(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// PlaylistByID returns one playlist with its item count, or nil.
func (s *Store) PlaylistByID(ctx context.Context, id int64) (*Playlist, error) {
	var out *Playlist
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx, `
			SELECT p.playlist_id, p.name, p.description, p.created_by,
			       p.created_on_machine, p.created_at,
			       (SELECT COUNT(*) FROM playlist_items i WHERE i.playlist_fk = p.playlist_id)
			FROM playlists p WHERE p.playlist_id = ?`, id)
		p, err := scanPlaylist(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

// UpdatePlaylist renames a playlist and/or replaces its description. Nil
// pointers leave the field unchanged.
func (s *Store) UpdatePlaylist(ctx context.Context, id int64, name, description *string) (bool, error) {
	if name == nil && description == nil {
		return false, nil
	}
	var updated bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		q := `UPDATE playlists SET `
		var args []any
		if name != nil {
			q += `name = ?`
			args = append(args, *name)
		}
		if description != nil {
			if name != nil {
				q += `, `
			}
			q += `description = ?`
			args = append(args, *description)
		}
		q += ` WHERE playlist_id = ?`
		args = append(args, id)
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		updated = n > 0
		return err
	})
	return updated, err
}

// DeletePlaylist removes a playlist; its items cascade.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM playlists WHERE playlist_id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// AddToPlaylist appends an element to a playlist. A nil orderIndex places
// it at the end; re-adding an existing element is a no-op.
func (s *Store) AddToPlaylist(ctx context.Context, playlistID, elementID int64, orderIndex *int) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		idx := 0
		if orderIndex != nil {
			idx = *orderIndex
		} else {
			err := db.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(order_index) + 1, 0) FROM playlist_items WHERE playlist_fk = ?`,
				playlistID).Scan(&idx)
			if err != nil {
				return err
			}
		}
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO playlist_items (playlist_fk, element_fk, order_index)
			 VALUES (?, ?, ?)`, playlistID, elementID, idx)
		return err
	})
}

// RemoveFromPlaylist drops an element from a playlist.
func (s *Store) RemoveFromPlaylist(ctx context.Context, playlistID, elementID int64) (bool, error) {
	var removed bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM playlist_items WHERE playlist_fk = ? AND element_fk = ?`,
			playlistID, elementID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	return removed, err
}

// PlaylistElements returns a playlist's elements in play order.
func (s *Store) PlaylistElements(ctx context.Context, playlistID int64) ([]Element, error) {
	var out []Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT `+prefixedElementColumns("e")+`
			 FROM elements e
			 JOIN playlist_items i ON i.element_fk = e.element_id
			 WHERE i.playlist_fk = ?
			 ORDER BY i.order_index, i.item_id`, playlistID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectElements(rows)
		return err
	})
	return out, err
}

// InPlaylist reports whether a playlist already contains an element.
func (s *Store) InPlaylist(ctx context.Context, playlistID, elementID int64) (bool, error) {
	var found bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		var one int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM playlist_items WHERE playlist_fk = ? AND element_fk = ?`,
			playlistID, elementID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// ReorderPlaylist rewrites the order indexes to match elementOrder. Elements
// not listed keep their rows but sort after the reordered ones.
func (s *Store) ReorderPlaylist(ctx context.Context, playlistID int64, elementOrder []int64) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for i, elementID := range elementOrder {
			if _, err := tx.ExecContext(ctx,
				`UPDATE playlist_items SET order_index = ? WHERE playlist_fk = ? AND element_fk = ?`,
				i, playlistID, elementID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func scanPlaylist(r rowScanner) (Playlist, error) {
	var p Playlist
	var desc, by, on sql.NullString
	var created string
	if err := r.Scan(&p.ID, &p.Name, &desc, &by, &on, &created, &p.ItemCount); err != nil {
		return Playlist{}, err
	}
	p.Description = desc.String
	p.CreatedBy = by.String
	p.CreatedOn = on.String
	p.CreatedAt = parseTime(created)
	return p, nil
}

// prefixedElementColumns qualifies elementColumns with a table alias for
// joins.
func prefixedElementColumns(alias string) string {
	cols := ""
	for i, c := range splitColumns(elementColumns) {
		if i > 0 {
			cols += ", "
		}
		cols += alias + "." + c
	}
	return cols
}

func splitColumns(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, c := range parts {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}
