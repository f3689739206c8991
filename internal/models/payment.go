// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// PaymentStatusSucceeded mirrors the provider status of a completed charge.
const PaymentStatusSucceeded = "succeeded"

// Payment is a ledger entry for a provider payment intent.
type Payment struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	Email      string    `db:"email" json:"email"`
	Amount     int64     `db:"amount" json:"amount"`
	Currency   string    `db:"currency" json:"currency"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
