// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// CreateMagicLinkToken stores a hashed magic link token.
func (r *Repository) CreateMagicLinkToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO magic_link_tokens (email, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		models.NormalizeEmail(email), tokenHash, expiresAt.UTC(), time.Now().UTC())
	return err
}

// ConsumeMagicLinkToken deletes the token with the given hash and returns it.
// The delete is a single statement, so only one caller can consume a token.
// Expired tokens are consumed too but reported as ErrNotFound.
func (r *Repository) ConsumeMagicLinkToken(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLinkToken, error) {
	var token models.MagicLinkToken
	err := r.db.GetContext(ctx, &token,
		`DELETE FROM magic_link_tokens WHERE token_hash = ?
		 RETURNING id, email, token_hash, expires_at, created_at`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	if token.IsExpired(now) {
		return nil, ErrNotFound
	}
	return &token, nil
}

// DeleteExpiredMagicLinkTokens purges tokens that expired before now.
func (r *Repository) DeleteExpiredMagicLinkTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM magic_link_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
