package store

import (
	"context"
	"fmt"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// PutRule inserts a rule record keyed by its content digest.
// Returns the digest ID and whether a new row was inserted. Writing the
// same rule twice is a silent no-op (idempotent), so re-importing a rule
// file never duplicates rules.
func (s *Store) PutRule(ctx context.Context, r rules.Rule) (id string, inserted bool, err error) {
	id, err = r.Digest()
	if err != nil {
		return "", false, fmt.Errorf("put rule: %w", err)
	}

	predsJSON, err := marshalPredicates(r.Predicates)
	if err != nil {
		return "", false, fmt.Errorf("put rule: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules
		(id, kind, subject, subject_folded, object, severity, priority, section, reference, predicates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		string(r.Kind),
		r.Subject,
		mods.Key(r.Subject),
		r.Object,
		string(r.Severity),
		r.Priority,
		r.Section,
		r.Reference,
		predsJSON,
	)
	if err != nil {
		return "", false, fmt.Errorf("put rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("put rule: rows affected: %w", err)
	}

	return id, affected > 0, nil
}

// PutRules writes a batch of rules in a single transaction and returns how
// many rows were newly inserted. Duplicates within the batch or against
// existing rows count as zero.
func (s *Store) PutRules(ctx context.Context, rs []rules.Rule) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put rules: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rules
		(id, kind, subject, subject_folded, object, severity, priority, section, reference, predicates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("put rules: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rs {
		id, err := r.Digest()
		if err != nil {
			return 0, fmt.Errorf("put rules: %s: %w", r, err)
		}
		predsJSON, err := marshalPredicates(r.Predicates)
		if err != nil {
			return 0, fmt.Errorf("put rules: %s: %w", r, err)
		}
		result, err := stmt.ExecContext(ctx,
			id, string(r.Kind), r.Subject, mods.Key(r.Subject), r.Object,
			string(r.Severity), r.Priority, r.Section, r.Reference, predsJSON,
		)
		if err != nil {
			return 0, fmt.Errorf("put rules: %s: %w", r, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("put rules: rows affected: %w", err)
		}
		if affected > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put rules: commit: %w", err)
	}

	return inserted, nil
}

// GetRule retrieves a rule by digest ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRule(ctx context.Context, id string) (rules.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, subject, object, severity, priority, section, reference, predicates
		FROM rules
		WHERE id = ?
	`, id)

	return scanRule(row.Scan)
}

// ListRules returns rules matching the filter, or all rules when filter is
// nil. Ordered by kind, then folded subject, then object, then digest ID,
// so identical store contents list identically.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRules(ctx context.Context, filter Filter) ([]rules.Rule, error) {
	where, params, err := compileRuleFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, subject, object, severity, priority, section, reference, predicates
		FROM rules
		WHERE `+where+`
		ORDER BY kind ASC,
		         subject_folded COLLATE BINARY ASC,
		         object COLLATE BINARY ASC,
		         id ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var list []rules.Rule
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	// Return empty slice instead of nil
	if list == nil {
		list = []rules.Rule{}
	}

	return list, nil
}

// DeleteRule removes a rule by digest ID. Reports whether a row was
// actually deleted.
func (s *Store) DeleteRule(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rules WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rule: rows affected: %w", err)
	}

	return affected > 0, nil
}

// scanRule scans one rules row. The scan argument abstracts over sql.Row
// and sql.Rows, which share no interface.
func scanRule(scan func(dest ...any) error) (rules.Rule, error) {
	var r rules.Rule
	var kind, severity, predsJSON string

	if err := scan(&kind, &r.Subject, &r.Object, &severity, &r.Priority, &r.Section, &r.Reference, &predsJSON); err != nil {
		return rules.Rule{}, err
	}

	r.Kind = rules.Kind(kind)
	r.Severity = rules.Severity(severity)

	preds, err := unmarshalPredicates(predsJSON)
	if err != nil {
		return rules.Rule{}, err
	}
	r.Predicates = preds

	return r, nil
}
