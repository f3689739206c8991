// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature is returned for webhook payloads that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ParseSucceededIntent verifies a Stripe webhook payload and returns the
// intent for payment_intent.succeeded events. Other event types return nil.
func ParseSucceededIntent(payload []byte, sigHeader, secret string) (*Intent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != "payment_intent.succeeded" {
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decoding payment intent: %w", err)
	}
	intent := fromStripe(&pi)
	return &intent, nil
}
