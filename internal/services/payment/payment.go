// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package payment verifies purchases and creates payment intents.
package payment

import (
	"context"
	"errors"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

var (
	// ErrInvalidAmount is returned for amounts outside the allow-list.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotConfigured is returned when no payment provider is available.
	ErrNotConfigured = errors.New("payment provider is not configured")
)

// Intent is the provider-neutral view of a payment intent.
type Intent struct { //nolint:govet // fieldalignment: readability over optimization
	ID           string
	Status       string
	ReceiptEmail string
	Metadata     map[string]string
	Amount       int64
	Currency     string
	Created      time.Time
}

// Page is one page of a provider listing.
type Page struct {
	Intents []Intent
	HasMore bool
}

// CreateIntentParams describes a new payment intent.
type CreateIntentParams struct {
	Email    string
	Amount   int64
	Currency string
}

// CreatedIntent is the result of creating a payment intent.
type CreatedIntent struct {
	ID           string
	ClientSecret string
}

// Provider is the payment processor.
type Provider interface {
	ListIntents(ctx context.Context, startingAfter string, limit int64) (*Page, error)
	CreateIntent(ctx context.Context, params CreateIntentParams) (*CreatedIntent, error)
}

// Ledger stores payments already known to have succeeded.
type Ledger interface {
	HasSucceededPayment(ctx context.Context, email string) (bool, error)
	RecordPayment(ctx context.Context, p *models.Payment) error
}

// MatchesEmail reports whether the intent succeeded and belongs to email.
func (i *Intent) MatchesEmail(email string) bool {
	if i.Status != models.PaymentStatusSucceeded {
		return false
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return false
	}
	return models.NormalizeEmail(i.ReceiptEmail) == email ||
		models.NormalizeEmail(i.Metadata["email"]) == email
}

// Email returns the buyer address recorded on the intent.
func (i *Intent) Email() string {
	if e := models.NormalizeEmail(i.Metadata["email"]); e != "" {
		return e
	}
	return models.NormalizeEmail(i.ReceiptEmail)
}

// toPayment builds the ledger entry for the intent, stored under email.
func (i *Intent) toPayment(email string) *models.Payment {
	p := &models.Payment{
		ProviderID: i.ID,
		Email:      email,
		Amount:     i.Amount,
		Currency:   i.Currency,
		Status:     i.Status,
	}
	if !i.Created.IsZero() {
		p.CreatedAt = i.Created.UTC()
	}
	return p
}
