// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// MagicLinkToken stores the SHA256 hash of a single-use login token.
type MagicLinkToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the token can no longer be redeemed.
func (t *MagicLinkToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
