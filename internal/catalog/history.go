// SPDX-License-Identifier: MIT

package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"
)

// LogIngestion records one ingestion action. elementID may be nil when the
// ingestion failed before an element existed.
func (s *Store) LogIngestion(ctx context.Context, action, sourcePath, targetList, status, message string, elementID *int64) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO ingestion_history (element_fk, action, source_path, target_list, status, message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			elementID, action, sourcePath, targetList, status, message)
		return err
	})
}

// History returns the most recent ingestion records, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []HistoryEntry
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT history_id, element_fk, action, source_path, target_list, status, message, ingested_at
			 FROM ingestion_history ORDER BY ingested_at DESC, history_id DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			h, err := scanHistory(rows)
			if err != nil {
				return err
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	return out, err
}

// ExportHistoryCSV writes ingestion history to a CSV file atomically, so a
// half-written export can never be mistaken for a complete one. limit <= 0
// exports everything.
func (s *Store) ExportHistoryCSV(ctx context.Context, outPath string, limit int) (int, error) {
	var entries []HistoryEntry
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		q := `SELECT history_id, element_fk, action, source_path, target_list, status, message, ingested_at
		      FROM ingestion_history ORDER BY ingested_at DESC, history_id DESC`
		var args []any
		if limit > 0 {
			q += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			h, err := scanHistory(rows)
			if err != nil {
				return err
			}
			entries = append(entries, h)
		}
		return rows.Err()
	})
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"history_id", "element_id", "action", "source_path", "target_list", "status", "message", "ingested_at"})
	for _, h := range entries {
		elem := ""
		if h.ElementID != nil {
			elem = strconv.FormatInt(*h.ElementID, 10)
		}
		_ = w.Write([]string{
			strconv.FormatInt(h.ID, 10), elem, h.Action, h.SourcePath,
			h.TargetList, h.Status, h.Message, h.IngestedAt.Format(sqliteTimeLayout),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("encode history CSV: %w", err)
	}

	if err := renameio.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write history export %s: %w", outPath, err)
	}
	return len(entries), nil
}

func scanHistory(r rowScanner) (HistoryEntry, error) {
	var h HistoryEntry
	var elem sql.NullInt64
	var source, target, message sql.NullString
	var ingested string
	err := r.Scan(&h.ID, &elem, &h.Action, &source, &target, &h.Status, &message, &ingested)
	if err != nil {
		return HistoryEntry{}, err
	}
	if elem.Valid {
		h.ElementID = &elem.Int64
	}
	h.SourcePath = source.String
	h.TargetList = target.String
	h.Message = message.String
	h.IngestedAt = parseTime(ingested)
	return h, nil
}
