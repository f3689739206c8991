// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// RecordPayment inserts or updates a ledger entry keyed by provider ID.
func (r *Repository) RecordPayment(ctx context.Context, p *models.Payment) error {
	p.Email = models.NormalizeEmail(p.Email)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return r.db.GetContext(ctx, &p.ID,
		`INSERT INTO payments (provider_id, email, amount, currency, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider_id) DO UPDATE SET status = excluded.status, email = excluded.email
		 RETURNING id`,
		p.ProviderID, p.Email, p.Amount, p.Currency, p.Status, p.CreatedAt)
}

// GetPaymentByProviderID retrieves a ledger entry by the provider's ID.
func (r *Repository) GetPaymentByProviderID(ctx context.Context, providerID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payments WHERE provider_id = ?`, providerID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &p, nil
}

// HasSucceededPayment reports whether the ledger holds a succeeded payment for email.
func (r *Repository) HasSucceededPayment(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT count(*) FROM payments WHERE email = ? AND status = ?`,
		models.NormalizeEmail(email), models.PaymentStatusSucceeded)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
