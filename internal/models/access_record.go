// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// AccessSource names the event that established access.
type AccessSource string

const (
	AccessSourcePaymentScan AccessSource = "payment_scan"
	AccessSourceLedger      AccessSource = "ledger"
	AccessSourceAdmin       AccessSource = "admin"
)

// AccessRecord is the durable fact that an email may read the ebook.
type AccessRecord struct { //nolint:govet // fieldalignment: readability over optimization
	Email     string       `db:"email" json:"email"`
	HasAccess bool         `db:"has_access" json:"has_access"`
	Source    AccessSource `db:"source" json:"source"`
	GrantedAt time.Time    `db:"granted_at" json:"granted_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
