package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

const generationColumns = `id, account_id, template_slug, template_name, field_keys, field_values, output_text, output_length, created_at`

func insertGeneration(ctx context.Context, tx pgx.Tx, rec *model.GenerationRecord) error {
	keys, values := rec.InputFields.Columns()

	query := `
		INSERT INTO generations (` + generationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		rec.ID,
		rec.AccountID,
		rec.TemplateSlug,
		rec.TemplateName,
		pq.Array(keys),
		pq.Array(values),
		rec.OutputText,
		rec.OutputLength,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

// ListGenerations returns one newest-first page plus the account's total.
func (s *Store) ListGenerations(ctx context.Context, accountID string, page repository.Page) ([]*model.GenerationRecord, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM generations WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count generations: %w", err)
	}

	query := `
		SELECT ` + generationColumns + `
		FROM generations
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	records := []*model.GenerationRecord{}
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating generations: %w", err)
	}

	return records, total, nil
}

// GetGeneration returns a record owned by accountID.
func (s *Store) GetGeneration(ctx context.Context, accountID, id string) (*model.GenerationRecord, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1 AND account_id = $2`
	return scanGeneration(s.pool.QueryRow(ctx, query, id, accountID))
}

func scanGeneration(row pgx.Row) (*model.GenerationRecord, error) {
	var rec model.GenerationRecord
	var keys, values []string

	err := row.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.TemplateSlug,
		&rec.TemplateName,
		pq.Array(&keys),
		pq.Array(&values),
		&rec.OutputText,
		&rec.OutputLength,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}

	fields, err := model.FieldsFromColumns(keys, values)
	if err != nil {
		return nil, fmt.Errorf("generation %s: %w", rec.ID, err)
	}
	rec.InputFields = fields
	return &rec, nil
}
