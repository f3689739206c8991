// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// UpsertLead returns the lead for email, creating it on first touch.
// created reports whether this call inserted the row.
func (r *Repository) UpsertLead(ctx context.Context, email string) (lead *models.Lead, created bool, err error) {
	email = models.NormalizeEmail(email)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (email, created_at) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
		email, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	lead, err = r.GetLeadByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return lead, n > 0, nil
}

// GetLeadByEmail retrieves a lead by its normalized email.
func (r *Repository) GetLeadByEmail(ctx context.Context, email string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.GetContext(ctx, &lead, `SELECT * FROM leads WHERE email = ?`, models.NormalizeEmail(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &lead, nil
}

// CountLeads returns the number of leads.
func (r *Repository) CountLeads(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM leads`)
	return count, err
}
