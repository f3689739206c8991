// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// GrantAccess marks email as having access. Repeated grants keep the
// original granted_at.
func (r *Repository) GrantAccess(ctx context.Context, email string, source models.AccessSource) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_records (email, has_access, source, granted_at, updated_at)
		 VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			has_access = 1,
			source = CASE WHEN access_records.has_access = 1 THEN access_records.source ELSE excluded.source END,
			granted_at = CASE WHEN access_records.has_access = 1 THEN access_records.granted_at ELSE excluded.granted_at END,
			updated_at = excluded.updated_at`,
		models.NormalizeEmail(email), source, now, now)
	return err
}

// RevokeAccess clears the access flag for email.
func (r *Repository) RevokeAccess(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE access_records SET has_access = 0, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), models.NormalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAccessRecord retrieves the access record for email.
func (r *Repository) GetAccessRecord(ctx context.Context, email string) (*models.AccessRecord, error) {
	var rec models.AccessRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM access_records WHERE email = ?`, models.NormalizeEmail(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &rec, nil
}

// HasAccess reports whether email holds a true access record.
// A missing record is not an error.
func (r *Repository) HasAccess(ctx context.Context, email string) (bool, error) {
	rec, err := r.GetAccessRecord(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.HasAccess, nil
}
