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

const tokenColumns = `id, account_id, token_hash, token_prefix, scopes, name, expires_at, revoked_at, last_used_at, created_at`

// CreateAccessToken inserts a hashed access token.
func (s *Store) CreateAccessToken(ctx context.Context, t *model.AccessToken) error {
	query := `
		INSERT INTO access_tokens (id, account_id, token_hash, token_prefix, scopes, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.AccountID,
		t.TokenHash,
		t.TokenPrefix,
		pq.Array(t.Scopes),
		t.Name,
		t.ExpiresAt,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

// GetAccessTokensByPrefix returns unrevoked tokens matching prefix.
// Used during authentication to find candidates for hash verification.
func (s *Store) GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM access_tokens
		WHERE token_prefix = $1 AND revoked_at IS NULL
	`

	rows, err := s.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get access tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access tokens: %w", err)
	}

	return tokens, nil
}

// RevokeAccessToken sets revoked_at on an active token.
func (s *Store) RevokeAccessToken(ctx context.Context, id string) error {
	query := `
		UPDATE access_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrTokenNotFound
	}
	return nil
}

// UpdateAccessTokenLastUsed stamps last_used_at.
func (s *Store) UpdateAccessTokenLastUsed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE access_tokens SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update access token last used: %w", err)
	}
	return nil
}

func scanToken(row pgx.Row) (*model.AccessToken, error) {
	var t model.AccessToken
	var scopes []string

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.TokenHash,
		&t.TokenPrefix,
		pq.Array(&scopes),
		&t.Name,
		&t.ExpiresAt,
		&t.RevokedAt,
		&t.LastUsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to scan access token: %w", err)
	}

	t.Scopes = scopes
	return &t, nil
}
