package store

import (
	"context"
	"fmt"

	"github.com/roach88/loadstone/internal/mods"
)

// PutMod inserts or updates a mod record.
// The case-folded name is the primary key, so importing "Better Heads.esp"
// and "better heads.esp" touches the same row and the later import's
// spelling and metadata win.
func (s *Store) PutMod(ctx context.Context, m mods.Mod) error {
	metaJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return fmt.Errorf("put mod: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mods (folded, name, content_hash, source, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(folded) DO UPDATE SET
			name = excluded.name,
			content_hash = excluded.content_hash,
			source = excluded.source,
			metadata = excluded.metadata
	`,
		mods.Key(m.Name),
		m.Name,
		m.ContentHash,
		m.Source,
		metaJSON,
	)
	if err != nil {
		return fmt.Errorf("put mod: %w", err)
	}

	return nil
}

// PutMods writes a batch of mods in a single transaction.
// All-or-nothing: one bad record rolls the whole batch back.
func (s *Store) PutMods(ctx context.Context, list []mods.Mod) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put mods: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mods (folded, name, content_hash, source, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(folded) DO UPDATE SET
			name = excluded.name,
			content_hash = excluded.content_hash,
			source = excluded.source,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("put mods: prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range list {
		metaJSON, err := marshalMetadata(m.Metadata)
		if err != nil {
			return fmt.Errorf("put mods: %q: %w", m.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, mods.Key(m.Name), m.Name, m.ContentHash, m.Source, metaJSON); err != nil {
			return fmt.Errorf("put mods: %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put mods: commit: %w", err)
	}

	return nil
}

// GetMod retrieves a mod by name. Lookup is caseless: any spelling of the
// name finds the row. Returns sql.ErrNoRows if not found.
func (s *Store) GetMod(ctx context.Context, name string) (mods.Mod, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, content_hash, source, metadata
		FROM mods
		WHERE folded = ?
	`, mods.Key(name))

	return scanMod(row.Scan)
}

// ListMods returns mods matching the filter, or all mods when filter is
// nil. Results are ordered by folded name so identical store contents list
// identically.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListMods(ctx context.Context, filter Filter) ([]mods.Mod, error) {
	where, params, err := compileModFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("list mods: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, content_hash, source, metadata
		FROM mods
		WHERE `+where+`
		ORDER BY folded COLLATE BINARY ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query mods: %w", err)
	}
	defer rows.Close()

	var list []mods.Mod
	for rows.Next() {
		m, err := scanMod(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mods: %w", err)
	}

	// Return empty slice instead of nil
	if list == nil {
		list = []mods.Mod{}
	}

	return list, nil
}

// DeleteMod removes a mod by name (caseless). Reports whether a row was
// actually deleted.
func (s *Store) DeleteMod(ctx context.Context, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM mods WHERE folded = ?
	`, mods.Key(name))
	if err != nil {
		return false, fmt.Errorf("delete mod: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete mod: rows affected: %w", err)
	}

	return affected > 0, nil
}

// scanMod scans one mods row. The scan argument abstracts over sql.Row and
// sql.Rows, which share no interface.
func scanMod(scan func(dest ...any) error) (mods.Mod, error) {
	var m mods.Mod
	var metaJSON string

	if err := scan(&m.Name, &m.ContentHash, &m.Source, &metaJSON); err != nil {
		return mods.Mod{}, err
	}

	meta, err := unmarshalMetadata(metaJSON)
	if err != nil {
		return mods.Mod{}, err
	}
	m.Metadata = meta

	return m, nil
}
