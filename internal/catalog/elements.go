// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const elementColumns = `element_id, list_fk, name, type, filepath_soft, filepath_hard,
	is_hard_copy, frame_range, format, comment, tags, preview_path, gif_preview_path,
	video_preview_path, geometry_preview_path, is_deprecated, file_size, created_at`

// NewElement carries the caller-settable fields for CreateElement.
type NewElement struct {
	ListID              int64
	Name                string
	Type                ElementType
	FilepathSoft        string
	FilepathHard        string
	IsHardCopy          bool
	FrameRange          string
	Format              string
	Comment             string
	Tags                []string
	PreviewPath         string
	GIFPreviewPath      string
	VideoPreviewPath    string
	GeometryPreviewPath string
	FileSize            int64
}

// CreateElement catalogues an asset inside a list.
func (s *Store) CreateElement(ctx context.Context, e NewElement) (int64, error) {
	if !e.Type.Valid() {
		return 0, fmt.Errorf("invalid element type %q", e.Type)
	}
	var id int64
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO elements (list_fk, name, type, filepath_soft, filepath_hard,
				is_hard_copy, frame_range, format, comment, tags, preview_path,
				gif_preview_path, video_preview_path, geometry_preview_path, file_size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ListID, e.Name, string(e.Type), e.FilepathSoft, e.FilepathHard,
			e.IsHardCopy, e.FrameRange, e.Format, e.Comment, joinTags(e.Tags),
			e.PreviewPath, e.GIFPreviewPath, e.VideoPreviewPath,
			e.GeometryPreviewPath, e.FileSize)
		if err != nil {
			return fmt.Errorf("create element %s: %w", e.Name, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// PageOptions control element listing.
type PageOptions struct {
	IncludeDeprecated bool
	Limit             int // 0 means no limit
	Offset            int
}

// ElementsByList returns a list's elements ordered by name, paginated.
func (s *Store) ElementsByList(ctx context.Context, listID int64, opts PageOptions) ([]Element, error) {
	var out []Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		q := `SELECT ` + elementColumns + ` FROM elements WHERE list_fk = ?`
		args := []any{listID}
		if !opts.IncludeDeprecated {
			q += ` AND is_deprecated = 0`
		}
		q += ` ORDER BY name`
		if opts.Limit > 0 {
			q += ` LIMIT ? OFFSET ?`
			args = append(args, opts.Limit, opts.Offset)
		}
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectElements(rows)
		return err
	})
	return out, err
}

// CountElements returns the number of elements in a list.
func (s *Store) CountElements(ctx context.Context, listID int64, includeDeprecated bool) (int, error) {
	var n int
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		q := `SELECT COUNT(*) FROM elements WHERE list_fk = ?`
		if !includeDeprecated {
			q += ` AND is_deprecated = 0`
		}
		return db.QueryRowContext(ctx, q, listID).Scan(&n)
	})
	return n, err
}

// ElementByID returns one element, or nil when absent.
func (s *Store) ElementByID(ctx context.Context, id int64) (*Element, error) {
	var out *Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			`SELECT `+elementColumns+` FROM elements WHERE element_id = ?`, id)
		e, err := scanElement(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		out = &e
		return nil
	})
	return out, err
}

// elementUpdateColumns whitelists what UpdateElement may touch; anything
// else in the map is rejected rather than silently interpolated.
var elementUpdateColumns = map[string]bool{
	"name": true, "comment": true, "frame_range": true, "format": true,
	"filepath_soft": true, "filepath_hard": true, "is_hard_copy": true,
	"preview_path": true, "gif_preview_path": true, "video_preview_path": true,
	"geometry_preview_path": true, "is_deprecated": true, "file_size": true,
	"tags": true, "list_fk": true,
}

// UpdateElement applies a partial update of whitelisted columns.
func (s *Store) UpdateElement(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for col, val := range fields {
		if !elementUpdateColumns[col] {
			return false, fmt.Errorf("column %q is not updatable", col)
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	args = append(args, id)

	var updated bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE elements SET `+strings.Join(sets, ", ")+` WHERE element_id = ?`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		updated = n > 0
		return err
	})
	return updated, err
}

// DeleteElement removes an element; favorites and playlist items cascade.
func (s *Store) DeleteElement(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM elements WHERE element_id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// searchProperties whitelists SearchElements targets.
var searchProperties = map[string]bool{
	"name": true, "format": true, "type": true, "comment": true, "frame_range": true,
}

// SearchElements finds elements whose property matches text: loose uses a
// substring LIKE, otherwise exact equality.
func (s *Store) SearchElements(ctx context.Context, text, property string, loose bool) ([]Element, error) {
	if property == "" {
		property = "name"
	}
	if !searchProperties[property] {
		return nil, fmt.Errorf("property %q is not searchable", property)
	}
	var out []Element
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		var rows *sql.Rows
		var err error
		if loose {
			rows, err = db.QueryContext(ctx,
				`SELECT `+elementColumns+` FROM elements WHERE `+property+` LIKE ? ORDER BY name`,
				"%"+text+"%")
		} else {
			rows, err = db.QueryContext(ctx,
				`SELECT `+elementColumns+` FROM elements WHERE `+property+` = ? ORDER BY name`,
				text)
		}
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		out, err = collectElements(rows)
		return err
	})
	return out, err
}

func collectElements(rows *sql.Rows) ([]Element, error) {
	var out []Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanElement(r rowScanner) (Element, error) {
	var e Element
	var typ, created string
	var soft, hard, frameRange, format, comment, tags sql.NullString
	var preview, gif, video, geom sql.NullString
	var size sql.NullInt64
	err := r.Scan(&e.ID, &e.ListID, &e.Name, &typ, &soft, &hard,
		&e.IsHardCopy, &frameRange, &format, &comment, &tags, &preview,
		&gif, &video, &geom, &e.IsDeprecated, &size, &created)
	if err != nil {
		return Element{}, err
	}
	e.Type = ElementType(typ)
	e.FilepathSoft = soft.String
	e.FilepathHard = hard.String
	e.FrameRange = frameRange.String
	e.Format = format.String
	e.Comment = comment.String
	e.Tags = splitTags(tags.String)
	e.PreviewPath = preview.String
	e.GIFPreviewPath = gif.String
	e.VideoPreviewPath = video.String
	e.GeometryPreviewPath = geom.String
	e.FileSize = size.Int64
	e.CreatedAt = parseTime(created)
	return e, nil
}
