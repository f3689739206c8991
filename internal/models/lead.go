// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"net/mail"
	"strings"
	"time"
)

// Lead records an email address that reached checkout, paid or not.
type Lead struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizeEmail trims and lower-cases an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether s is a bare, syntactically valid address.
// Display-name forms like "Jane <jane@example.com>" are rejected.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(addr.Address, ".")
}
