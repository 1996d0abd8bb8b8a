package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/pierce/dbopen"
)

// Selector is a named, reusable query.
type Selector struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Selector  string `json:"selector"`
	Source    string `json:"source,omitempty"` // URL or file path; may be overridden per run
	Mode      string `json:"mode"`
	Stealth   string `json:"stealth"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

const selectorCols = `id, name, selector, source, mode, stealth, created_at, updated_at`

// SaveSelector inserts sel, or updates the row with the same name. On update
// the stored ID and CreatedAt are kept and copied back into sel.
func (s *Store) SaveSelector(ctx context.Context, sel *Selector) error {
	now := time.Now().UnixMilli()
	if sel.CreatedAt == 0 {
		sel.CreatedAt = now
	}
	sel.UpdatedAt = now
	if sel.Mode == "" {
		sel.Mode = "all"
	}
	if sel.Stealth == "" {
		sel.Stealth = "auto"
	}

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO selectors (`+selectorCols+`)
			VALUES (?,?,?,?,?,?,?,?)
			ON CONFLICT(name) DO UPDATE SET
				selector = excluded.selector,
				source = excluded.source,
				mode = excluded.mode,
				stealth = excluded.stealth,
				updated_at = excluded.updated_at`,
			sel.ID, sel.Name, sel.Selector, sel.Source, sel.Mode, sel.Stealth, sel.CreatedAt, sel.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM selectors WHERE name = ?`, sel.Name,
		).Scan(&sel.ID, &sel.CreatedAt)
	})
}

// GetSelector returns the selector called name, or nil if there is none.
func (s *Store) GetSelector(ctx context.Context, name string) (*Selector, error) {
	sel, err := scanSelector(s.DB.QueryRowContext(ctx,
		`SELECT `+selectorCols+` FROM selectors WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sel, err
}

// ListSelectors returns every saved selector ordered by name.
func (s *Store) ListSelectors(ctx context.Context) ([]*Selector, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+selectorCols+` FROM selectors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sels := []*Selector{}
	for rows.Next() {
		sel, err := scanSelector(rows)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}
	return sels, rows.Err()
}

// DeleteSelector removes the selector called name. Its runs stay, detached.
func (s *Store) DeleteSelector(ctx context.Context, name string) error {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM selectors WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSelector(sc scanner) (*Selector, error) {
	sel := &Selector{}
	err := sc.Scan(&sel.ID, &sel.Name, &sel.Selector, &sel.Source, &sel.Mode, &sel.Stealth,
		&sel.CreatedAt, &sel.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sel, nil
}
