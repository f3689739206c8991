// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package access decides and grants ebook access.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/metrics"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
)

// ErrNotPaid is returned when no successful payment exists for an email.
var ErrNotPaid = errors.New("no successful payment found")

// Records reads and writes access records.
type Records interface {
	HasAccess(ctx context.Context, email string) (bool, error)
	GrantAccess(ctx context.Context, email string, source models.AccessSource) error
	RevokeAccess(ctx context.Context, email string) error
}

// Cookies reads the reader cookies from a request.
type Cookies interface {
	Email(r *http.Request) string
	HasAccessMarker(r *http.Request) bool
}

// Verifier checks and records payments.
type Verifier interface {
	HasPaid(ctx context.Context, email string) (bool, error)
	RecordIntent(ctx context.Context, intent *payment.Intent) error
}

// Gate decides whether a request may read gated content.
type Gate struct {
	cookies Cookies
	records Records
}

// NewGate creates a Gate.
func NewGate(cookies Cookies, records Records) *Gate {
	return &Gate{cookies: cookies, records: records}
}

// Check grants access on a valid access marker, or on an email cookie
// whose address holds a true access record. It never fails; lookup
// errors deny access.
func (g *Gate) Check(ctx context.Context, r *http.Request) bool {
	if g.cookies.HasAccessMarker(r) {
		return true
	}

	email := g.cookies.Email(r)
	if email == "" {
		return false
	}

	ok, err := g.records.HasAccess(ctx, email)
	if err != nil {
		slog.Warn("access lookup failed", "error", err)
		return false
	}
	return ok
}

// Granter promotes paying emails to readers.
type Granter struct {
	verifier  Verifier
	records   Records
	publisher events.Publisher
}

// NewGranter creates a Granter.
func NewGranter(verifier Verifier, records Records, publisher events.Publisher) *Granter {
	return &Granter{verifier: verifier, records: records, publisher: publisher}
}

// Grant verifies payment for email and stores a true access record.
// Unpaid emails get ErrNotPaid and no record.
func (g *Granter) Grant(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)

	paid, err := g.verifier.HasPaid(ctx, email)
	if err != nil {
		return fmt.Errorf("verifying payment: %w", err)
	}
	if !paid {
		return ErrNotPaid
	}

	return g.grant(ctx, email, models.AccessSourcePaymentScan)
}

// GrantFromIntent records a succeeded intent and grants its buyer access.
func (g *Granter) GrantFromIntent(ctx context.Context, intent *payment.Intent) error {
	if intent.Status != models.PaymentStatusSucceeded {
		return nil
	}
	if err := g.verifier.RecordIntent(ctx, intent); err != nil {
		return err
	}

	email := intent.Email()
	if !models.ValidEmail(email) {
		slog.Warn("succeeded payment without usable email", "intent", intent.ID)
		return nil
	}
	return g.grant(ctx, email, models.AccessSourceLedger)
}

// GrantManually stores a true access record for email without checking
// for a payment.
func (g *Granter) GrantManually(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if !models.ValidEmail(email) {
		return fmt.Errorf("invalid email %q", email)
	}
	return g.grant(ctx, email, models.AccessSourceAdmin)
}

// Revoke clears the access flag of email. Access marker cookies already
// issued stay valid until they expire.
func (g *Granter) Revoke(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if err := g.records.RevokeAccess(ctx, email); err != nil {
		return fmt.Errorf("revoking access: %w", err)
	}
	events.Emit(ctx, g.publisher, events.New(events.AccessRevoked, email, nil))
	return nil
}

func (g *Granter) grant(ctx context.Context, email string, source models.AccessSource) error {
	if err := g.records.GrantAccess(ctx, email, source); err != nil {
		return fmt.Errorf("granting access: %w", err)
	}
	metrics.AccessGrants.Inc()
	events.Emit(ctx, g.publisher, events.New(events.AccessGranted, email, map[string]string{
		"source": string(source),
	}))
	return nil
}
