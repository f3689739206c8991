// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package magiclink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/repository"
)

// SQLStore keeps tokens in the magic_link_tokens table.
type SQLStore struct {
	repo *repository.Repository
}

// NewSQLStore creates a store backed by repo.
func NewSQLStore(repo *repository.Repository) *SQLStore {
	return &SQLStore{repo: repo}
}

func (s *SQLStore) Save(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	return s.repo.CreateMagicLinkToken(ctx, email, tokenHash, expiresAt)
}

func (s *SQLStore) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	token, err := s.repo.ConsumeMagicLinkToken(ctx, tokenHash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return token.Email, nil
}

// Sweep deletes expired tokens.
func (s *SQLStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpiredMagicLinkTokens(ctx, now)
}

// RunSweeper deletes expired tokens every interval until ctx is done.
func (s *SQLStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, time.Now())
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("failed to sweep magic link tokens", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Debug("swept expired magic link tokens", "count", n)
			}
		}
	}
}
