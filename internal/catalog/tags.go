// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

// AllTags returns every distinct tag across the catalog, sorted
// case-insensitively.
func (s *Store) AllTags(ctx context.Context) ([]string, error) {
	var out []string
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT DISTINCT tags FROM elements WHERE tags IS NOT NULL AND tags != ''`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		seen := make(map[string]bool)
		for rows.Next() {
			var csv string
			if err := rows.Scan(&csv); err != nil {
				return err
			}
			for _, t := range splitTags(csv) {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i]) < strings.ToLower(out[j])
		})
		return rows.Err()
	})
	return out, err
}

// tagMatchExpr matches one tag inside the stored comma-separated column
// regardless of surrounding spaces: the column is normalized to
// ",a,b,c," form on the fly and probed with LIKE.
const tagMatchExpr = `(',' || REPLACE(COALESCE(tags, ''), ' ', '') || ',') LIKE ?`

// SearchByTags returns elements carrying the given tags: all of them when
// matchAll is set, any of them otherwise.
func (s *Store) SearchByTags(ctx context.Context, tags []string, matchAll bool) ([]Element, error) {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return nil, nil
	}
	conds := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, t := range tags {
		conds[i] = tagMatchExpr
		args[i] = "%," + strings.ReplaceAll(t, " ", "") + ",%"
	}
	joiner := " OR "
	if matchAll {
		joiner = " AND "
	}

	var out []Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT `+elementColumns+` FROM elements WHERE `+strings.Join(conds, joiner)+` ORDER BY name`,
			args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectElements(rows)
		return err
	})
	return out, err
}

// ElementsByTag is shorthand for a single-tag any-match search.
func (s *Store) ElementsByTag(ctx context.Context, tag string) ([]Element, error) {
	return s.SearchByTags(ctx, []string{tag}, false)
}

// AddTag attaches a tag to an element if not already present. Returns false
// when the element does not exist.
func (s *Store) AddTag(ctx context.Context, elementID int64, tag string) (bool, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false, nil
	}
	var ok bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		current, exists, err := readTags(ctx, db, elementID)
		if err != nil || !exists {
			return err
		}
		for _, t := range current {
			if t == tag {
				ok = true
				return nil
			}
		}
		_, err = db.ExecContext(ctx,
			`UPDATE elements SET tags = ? WHERE element_id = ?`,
			joinTags(append(current, tag)), elementID)
		ok = err == nil
		return err
	})
	return ok, err
}

// RemoveTag detaches a tag from an element. Returns false when the element
// does not exist.
func (s *Store) RemoveTag(ctx context.Context, elementID int64, tag string) (bool, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false, nil
	}
	var ok bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		current, exists, err := readTags(ctx, db, elementID)
		if err != nil || !exists {
			return err
		}
		kept := current[:0]
		for _, t := range current {
			if t != tag {
				kept = append(kept, t)
			}
		}
		_, err = db.ExecContext(ctx,
			`UPDATE elements SET tags = ? WHERE element_id = ?`,
			joinTags(kept), elementID)
		ok = err == nil
		return err
	})
	return ok, err
}

// ReplaceTags overwrites an element's tag set.
func (s *Store) ReplaceTags(ctx context.Context, elementID int64, tags []string) (bool, error) {
	var ok bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE elements SET tags = ? WHERE element_id = ?`, joinTags(tags), elementID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		ok = n > 0
		return err
	})
	return ok, err
}

func readTags(ctx context.Context, db *sql.DB, elementID int64) ([]string, bool, error) {
	var csv sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT tags FROM elements WHERE element_id = ?`, elementID).Scan(&csv)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return splitTags(csv.String), true, nil
}
