// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider implements Provider with the Stripe API.
type StripeProvider struct {
	sc *client.API
}

// NewStripeProvider creates a Stripe-backed provider.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{sc: client.New(secretKey, nil)}
}

// ListIntents fetches a single page of payment intents.
func (p *StripeProvider) ListIntents(ctx context.Context, startingAfter string, limit int64) (*Page, error) {
	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true
	if startingAfter != "" {
		params.StartingAfter = stripe.String(startingAfter)
	}

	page := &Page{}
	it := p.sc.PaymentIntents.List(params)
	for it.Next() {
		page.Intents = append(page.Intents, fromStripe(it.PaymentIntent()))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if meta := it.Meta(); meta != nil {
		page.HasMore = meta.HasMore
	}
	return page, nil
}

// CreateIntent creates a payment intent carrying the buyer email as the
// receipt address and in metadata.
func (p *StripeProvider) CreateIntent(ctx context.Context, in CreateIntentParams) (*CreatedIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(in.Amount),
		Currency:     stripe.String(in.Currency),
		ReceiptEmail: stripe.String(in.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("email", in.Email)

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return &CreatedIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	intent := Intent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.Created > 0 {
		intent.Created = time.Unix(pi.Created, 0).UTC()
	}
	return intent
}
