package store

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/glossary"
)

// UpsertGlossaryTerm inserts or updates a term. Idempotent: re-upserting the
// same sourceTerm for a series overwrites the existing row, so repeated
// finalize calls never produce duplicates.
func (s *Store) UpsertGlossaryTerm(ctx context.Context, seriesID string, term glossary.Term) error {
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary_terms (
            series_id, source_term, translated_term, entity_type, gender, role,
            notes, auto_suggested, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (series_id, source_term) DO UPDATE SET
            translated_term = excluded.translated_term,
            entity_type = excluded.entity_type,
            gender = excluded.gender,
            role = excluded.role,
            notes = excluded.notes,
            auto_suggested = excluded.auto_suggested,
            status = excluded.status,
            updated_at = excluded.updated_at`,
		seriesID, term.SourceTerm, term.TranslatedTerm, string(term.EntityType),
		string(term.Gender), string(term.Role), term.Notes,
		boolToInt(term.AutoSuggested), string(term.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert glossary term: %w", err)
	}
	return nil
}

// ListGlossaryTerms returns a series' terms ordered by source term.
func (s *Store) ListGlossaryTerms(ctx context.Context, seriesID string) ([]glossary.Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, translated_term, entity_type, gender, role, notes, auto_suggested, status
         FROM glossary_terms WHERE series_id = ? ORDER BY source_term`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list glossary terms: %w", err)
	}
	defer rows.Close()

	var out []glossary.Term
	for rows.Next() {
		var term glossary.Term
		var entityType, gender, role, status string
		var autoSuggested int
		if err := rows.Scan(&term.SourceTerm, &term.TranslatedTerm, &entityType,
			&gender, &role, &term.Notes, &autoSuggested, &status); err != nil {
			return nil, fmt.Errorf("scan glossary term: %w", err)
		}
		term.EntityType = glossary.EntityType(entityType)
		term.Gender = glossary.Gender(gender)
		term.Role = glossary.Role(role)
		term.AutoSuggested = autoSuggested != 0
		term.Status = glossary.Status(status)
		out = append(out, term)
	}
	return out, rows.Err()
}

// GlossaryMap returns a series' approved terms keyed by lowercased source
// term, the lookup structure translation requests consume.
func (s *Store) GlossaryMap(ctx context.Context, seriesID string) (map[string]glossary.Term, error) {
	terms, err := s.ListGlossaryTerms(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]glossary.Term, len(terms))
	for _, term := range terms {
		if term.Status != glossary.StatusApproved {
			continue
		}
		out[strings.ToLower(term.SourceTerm)] = term
	}
	return out, nil
}

// DeleteGlossaryTerm removes one term from a series.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, seriesID, sourceTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM glossary_terms WHERE series_id = ? AND source_term = ?`,
		seriesID, sourceTerm,
	)
	if err != nil {
		return fmt.Errorf("delete glossary term: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
