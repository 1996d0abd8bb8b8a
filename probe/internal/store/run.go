package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/pierce/dbopen"
)

// Run records one query execution.
type Run struct {
	ID         string `json:"id"`
	SelectorID string `json:"selector_id,omitempty"`
	Selector   string `json:"selector"`
	Source     string `json:"source"`
	MatchCount int    `json:"match_count"`
	ResultHash string `json:"result_hash,omitempty"`
	// Changed is set when the previous successful run of the same selector
	// on the same source produced a different hash.
	Changed   bool   `json:"changed"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	SelectorID string
	Selector   string
	Source     string
	Limit      int // default 50
}

const runCols = `id, selector_id, selector, source, match_count, result_hash, changed, elapsed_ms, error, created_at`

// RecordRun stores r and fills in r.Changed. Failed runs (Error set) never
// count as changed and are skipped when looking up the previous hash.
func (s *Store) RecordRun(ctx context.Context, r *Run) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		r.Changed = false
		if r.Error == "" {
			var prev string
			err := tx.QueryRowContext(ctx, `
				SELECT result_hash FROM runs
				WHERE selector = ? AND source = ? AND error = ''
				ORDER BY created_at DESC, rowid DESC LIMIT 1`,
				r.Selector, r.Source).Scan(&prev)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return err
			default:
				r.Changed = prev != r.ResultHash
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (`+runCols+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			r.ID, nullStr(r.SelectorID), r.Selector, r.Source, r.MatchCount, r.ResultHash,
			boolInt(r.Changed), r.ElapsedMS, r.Error, r.CreatedAt,
		)
		return err
	})
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]*Run, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	query := `SELECT ` + runCols + ` FROM runs WHERE 1=1`
	var args []any
	if f.SelectorID != "" {
		query += ` AND selector_id = ?`
		args = append(args, f.SelectorID)
	}
	if f.Selector != "" {
		query += ` AND selector = ?`
		args = append(args, f.Selector)
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		r := &Run{}
		var selID sql.NullString
		var changed int
		if err := rows.Scan(&r.ID, &selID, &r.Selector, &r.Source, &r.MatchCount, &r.ResultHash,
			&changed, &r.ElapsedMS, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SelectorID = selID.String
		r.Changed = changed != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
