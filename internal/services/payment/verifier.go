// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/mathrix/autonomouslab/internal/metrics"
	"codeberg.org/mathrix/autonomouslab/internal/models"
)

const (
	// DefaultMaxPages bounds the provider scan.
	DefaultMaxPages = 20
	// DefaultPageSize is the provider listing page size.
	DefaultPageSize = 100
)

// Verifier answers whether an email has completed a payment.
type Verifier struct {
	provider Provider
	ledger   Ledger
	maxPages int
	pageSize int64
}

// NewVerifier creates a Verifier. provider may be nil, in which case only
// the ledger is consulted.
func NewVerifier(provider Provider, ledger Ledger) *Verifier {
	return &Verifier{
		provider: provider,
		ledger:   ledger,
		maxPages: DefaultMaxPages,
		pageSize: DefaultPageSize,
	}
}

// WithScanBounds overrides the page count and size of the provider scan.
func (v *Verifier) WithScanBounds(maxPages int, pageSize int64) *Verifier {
	v.maxPages = maxPages
	v.pageSize = pageSize
	return v
}

// HasPaid checks the ledger, then scans the provider. A scan match is
// written back to the ledger.
func (v *Verifier) HasPaid(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)

	ok, err := v.ledger.HasSucceededPayment(ctx, email)
	if err != nil {
		return false, fmt.Errorf("checking payment ledger: %w", err)
	}
	if ok {
		metrics.PaymentVerifications.WithLabelValues("ledger").Inc()
		return true, nil
	}

	if v.provider == nil {
		return false, ErrNotConfigured
	}

	intent, err := v.scan(ctx, email)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		return false, err
	}
	if intent == nil {
		metrics.PaymentVerifications.WithLabelValues("not_found").Inc()
		return false, nil
	}

	metrics.PaymentVerifications.WithLabelValues("scan").Inc()
	// Store the address that matched so the next check is a ledger hit.
	if err := v.ledger.RecordPayment(ctx, intent.toPayment(email)); err != nil {
		slog.Warn("failed to record scanned payment", "intent", intent.ID, "error", err)
	}
	return true, nil
}

func (v *Verifier) scan(ctx context.Context, email string) (*Intent, error) {
	var startingAfter string
	for range v.maxPages {
		page, err := v.provider.ListIntents(ctx, startingAfter, v.pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing payment intents: %w", err)
		}

		for i := range page.Intents {
			if page.Intents[i].MatchesEmail(email) {
				return &page.Intents[i], nil
			}
		}

		if !page.HasMore || len(page.Intents) == 0 {
			break
		}
		startingAfter = page.Intents[len(page.Intents)-1].ID
	}
	return nil, nil
}

// RecordIntent stores a succeeded intent in the ledger.
func (v *Verifier) RecordIntent(ctx context.Context, intent *Intent) error {
	if err := v.ledger.RecordPayment(ctx, intent.toPayment(intent.Email())); err != nil {
		return fmt.Errorf("recording payment %s: %w", intent.ID, err)
	}
	return nil
}
