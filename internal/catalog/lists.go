// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
)

// CreateList adds a list to a stack. A non-nil parentID nests it under
// another list of the same stack.
func (s *Store) CreateList(ctx context.Context, stackID int64, name string, parentID *int64) (int64, error) {
	var id int64
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO lists (stack_fk, name, parent_list_fk) VALUES (?, ?, ?)`,
			stackID, name, parentID)
		if err != nil {
			return fmt.Errorf("create list %s: %w", name, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListsByStack returns a stack's lists: top-level ones when parentID is
// nil, otherwise the direct sub-lists of that parent.
func (s *Store) ListsByStack(ctx context.Context, stackID int64, parentID *int64) ([]List, error) {
	var out []List
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		var rows *sql.Rows
		var err error
		if parentID == nil {
			rows, err = db.QueryContext(ctx,
				`SELECT list_id, stack_fk, parent_list_fk, name, created_at
				 FROM lists WHERE stack_fk = ? AND parent_list_fk IS NULL ORDER BY name`, stackID)
		} else {
			rows, err = db.QueryContext(ctx,
				`SELECT list_id, stack_fk, parent_list_fk, name, created_at
				 FROM lists WHERE stack_fk = ? AND parent_list_fk = ? ORDER BY name`, stackID, *parentID)
		}
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectLists(rows)
		return err
	})
	return out, err
}

// SubLists returns the direct children of a parent list.
func (s *Store) SubLists(ctx context.Context, parentID int64) ([]List, error) {
	var out []List
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT list_id, stack_fk, parent_list_fk, name, created_at
			 FROM lists WHERE parent_list_fk = ? ORDER BY name`, parentID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectLists(rows)
		return err
	})
	return out, err
}

// ListByID returns one list, or nil when absent.
func (s *Store) ListByID(ctx context.Context, id int64) (*List, error) {
	var out *List
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		l, err := getList(ctx, db, id)
		if err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

// ListHierarchy returns the ancestor chain from the top-level list down to
// the given list, inclusive.
func (s *Store) ListHierarchy(ctx context.Context, id int64) ([]List, error) {
	var chain []List
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		chain, err = listHierarchy(ctx, db, id)
		return err
	})
	return chain, err
}

// DisplayPath renders "Stack / Parent / Child" for UI breadcrumbs.
func (s *Store) DisplayPath(ctx context.Context, id int64, separator string) (string, error) {
	if separator == "" {
		separator = " / "
	}
	var out string
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		chain, err := listHierarchy(ctx, db, id)
		if err != nil || len(chain) == 0 {
			return err
		}
		names := make([]string, 0, len(chain)+1)
		var stackName string
		err = db.QueryRowContext(ctx,
			`SELECT name FROM stacks WHERE stack_id = ?`, chain[0].StackID).Scan(&stackName)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if stackName != "" {
			names = append(names, stackName)
		}
		for _, l := range chain {
			names = append(names, l.Name)
		}
		out = strings.Join(names, separator)
		return nil
	})
	return out, err
}

// RepositoryPath returns the on-disk directory that mirrors a list's
// hierarchy under its stack's repository path, or "" when the chain is
// incomplete.
func (s *Store) RepositoryPath(ctx context.Context, id int64) (string, error) {
	var out string
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		chain, err := listHierarchy(ctx, db, id)
		if err != nil || len(chain) == 0 {
			return err
		}
		var stackPath string
		err = db.QueryRowContext(ctx,
			`SELECT path FROM stacks WHERE stack_id = ?`, chain[0].StackID).Scan(&stackPath)
		if err == sql.ErrNoRows || stackPath == "" {
			return nil
		}
		if err != nil {
			return err
		}
		parts := []string{stackPath}
		for _, l := range chain {
			parts = append(parts, l.Name)
		}
		out = filepath.Clean(filepath.Join(parts...))
		return nil
	})
	return out, err
}

// DeleteList removes a list; sub-lists and elements cascade.
func (s *Store) DeleteList(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM lists WHERE list_id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

func getList(ctx context.Context, db *sql.DB, id int64) (*List, error) {
	row := db.QueryRowContext(ctx,
		`SELECT list_id, stack_fk, parent_list_fk, name, created_at
		 FROM lists WHERE list_id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func listHierarchy(ctx context.Context, db *sql.DB, id int64) ([]List, error) {
	var chain []List
	current := &id
	// Depth guard against a corrupted parent cycle.
	for depth := 0; current != nil && depth < 64; depth++ {
		l, err := getList(ctx, db, *current)
		if err != nil {
			return nil, err
		}
		if l == nil {
			break
		}
		chain = append([]List{*l}, chain...)
		current = l.ParentID
	}
	return chain, nil
}

func collectLists(rows *sql.Rows) ([]List, error) {
	var out []List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanList(r rowScanner) (List, error) {
	var l List
	var parent sql.NullInt64
	var created string
	if err := r.Scan(&l.ID, &l.StackID, &parent, &l.Name, &created); err != nil {
		return List{}, err
	}
	if parent.Valid {
		l.ParentID = &parent.Int64
	}
	l.CreatedAt = parseTime(created)
	return l, nil
}
