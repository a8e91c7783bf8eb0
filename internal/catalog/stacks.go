// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateStack registers a primary category with its repository path.
func (s *Store) CreateStack(ctx context.Context, name, path string) (int64, error) {
	var id int64
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO stacks (name, path) VALUES (?, ?)`, name, path)
		if err != nil {
			return fmt.Errorf("create stack %s: %w", name, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Stacks returns all stacks ordered by name.
func (s *Store) Stacks(ctx context.Context) ([]Stack, error) {
	var out []Stack
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT stack_id, name, path, created_at FROM stacks ORDER BY name`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			st, err := scanStack(rows)
			if err != nil {
				return err
			}
			out = append(out, st)
		}
		return rows.Err()
	})
	return out, err
}

// StackByID returns one stack, or nil when absent.
func (s *Store) StackByID(ctx context.Context, id int64) (*Stack, error) {
	var out *Stack
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			`SELECT stack_id, name, path, created_at FROM stacks WHERE stack_id = ?`, id)
		st, err := scanStack(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		out = &st
		return nil
	})
	return out, err
}

// DeleteStack removes a stack; lists and elements cascade.
func (s *Store) DeleteStack(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM stacks WHERE stack_id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStack(r rowScanner) (Stack, error) {
	var st Stack
	var created string
	if err := r.Scan(&st.ID, &st.Name, &st.Path, &created); err != nil {
		return Stack{}, err
	}
	st.CreatedAt = parseTime(created)
	return st, nil
}
