// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// IntentCreator creates payment intents for allow-listed amounts.
type IntentCreator struct {
	provider Provider
	allowed  []int64
	currency string
}

// NewIntentCreator creates an IntentCreator. provider may be nil.
func NewIntentCreator(provider Provider, allowed []int64, currency string) *IntentCreator {
	return &IntentCreator{
		provider: provider,
		allowed:  allowed,
		currency: strings.ToLower(currency),
	}
}

// Allowed reports whether amount is an accepted price point.
func (c *IntentCreator) Allowed(amount int64) bool {
	return slices.Contains(c.allowed, amount)
}

// Create validates the amount and creates an intent tagged with email.
func (c *IntentCreator) Create(ctx context.Context, email string, amount int64) (*CreatedIntent, error) {
	if !c.Allowed(amount) {
		return nil, ErrInvalidAmount
	}
	if c.provider == nil {
		return nil, ErrNotConfigured
	}

	intent, err := c.provider.CreateIntent(ctx, CreateIntentParams{
		Email:    models.NormalizeEmail(email),
		Amount:   amount,
		Currency: c.currency,
	})
	if err != nil {
		return nil, fmt.Errorf("creating payment intent: %w", err)
	}
	return intent, nil
}
