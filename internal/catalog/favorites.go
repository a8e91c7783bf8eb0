// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
)

// AddFavorite marks an element as a favorite for a user on a machine.
// Adding an existing favorite is a no-op.
func (s *Store) AddFavorite(ctx context.Context, elementID int64, machine, user string) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO favorites (element_fk, machine_name, user_name)
			 VALUES (?, ?, ?)`, elementID, machine, user)
		return err
	})
}

// RemoveFavorite clears a favorite mark. Returns false when it was not set.
func (s *Store) RemoveFavorite(ctx context.Context, elementID int64, machine, user string) (bool, error) {
	var removed bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM favorites WHERE element_fk = ? AND machine_name = ? AND user_name = ?`,
			elementID, machine, user)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	return removed, err
}

// IsFavorite reports whether an element is marked for a user on a machine.
func (s *Store) IsFavorite(ctx context.Context, elementID int64, machine, user string) (bool, error) {
	var found bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		var one int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM favorites WHERE element_fk = ? AND machine_name = ? AND user_name = ?`,
			elementID, machine, user).Scan(&one)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// Favorites returns the favorited elements for a user on a machine, ordered
// by element name.
func (s *Store) Favorites(ctx context.Context, machine, user string) ([]Element, error) {
	var out []Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT `+elementColumns+` FROM elements
			 WHERE element_id IN (
				SELECT element_fk FROM favorites WHERE machine_name = ? AND user_name = ?
			 ) ORDER BY name`, machine, user)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectElements(rows)
		return err
	})
	return out, err
}
