package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

// ChangeRow is one entry in the change log.
type ChangeRow struct {
	ID         int64      `json:"id"`
	Kind       model.Kind `json:"kind"`
	RecordKey  string     `json:"record_key"`
	Date       string     `json:"date,omitempty"`
	ChangeType string     `json:"change_type"`
	Detail     string     `json:"detail,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
}

// InsertChange appends an entry to the change log. Detail is an optional
// JSON blob describing what moved (lineup diffs, stat deltas).
func (s *Store) InsertChange(ctx context.Context, kind model.Kind, recordKey, date, changeType, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.ChangesTable+` (kind, record_key, date, change_type, detail, detected_at)
		VALUES (?,?,?,?,?,?)`,
		string(kind), recordKey, date, changeType, detail, s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert change %s/%s: %w", kind, recordKey, err)
	}
	return nil
}

// Changes returns recent change log entries, newest first. Kind and date
// filter when non-empty.
func (s *Store) Changes(ctx context.Context, kind, date string, limit int) ([]ChangeRow, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, kind, record_key, date, change_type, detail, detected_at FROM ` + config.ChangesTable
	var where []string
	var args []interface{}
	if kind != "" {
		where = append(where, "kind = ?")
		args = append(args, kind)
	}
	if date != "" {
		where = append(where, "date = ?")
		args = append(args, date)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("changes: %w", err)
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var c ChangeRow
		var k string
		if err := rows.Scan(&c.ID, &k, &c.RecordKey, &c.Date, &c.ChangeType, &c.Detail, &c.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Kind = model.Kind(k)
		c.DetectedAt = c.DetectedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// PruneChanges deletes change log entries older than the cutoff and reports
// how many went.
func (s *Store) PruneChanges(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+config.ChangesTable+` WHERE detected_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune changes: %w", err)
	}
	return res.RowsAffected()
}
