// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// CreateContactRequest stores a contact form submission and fills in its ID.
func (r *Repository) CreateContactRequest(ctx context.Context, req *models.ContactRequest) error {
	req.Email = models.NormalizeEmail(req.Email)
	req.CreatedAt = time.Now().UTC()

	return r.db.GetContext(ctx, &req.ID,
		`INSERT INTO contact_requests (name, email, phone, message, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		req.Name, req.Email, req.Phone, req.Message, req.CreatedAt)
}

// ListContactRequests returns contact requests, newest first.
func (r *Repository) ListContactRequests(ctx context.Context, limit int) ([]models.ContactRequest, error) {
	var reqs []models.ContactRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM contact_requests ORDER BY id DESC LIMIT ?`, limit)
	return reqs, err
}

// CountContactRequests returns the number of stored contact requests.
func (r *Repository) CountContactRequests(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM contact_requests`)
	return count, err
}
