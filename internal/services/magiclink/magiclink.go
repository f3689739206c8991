// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package magiclink issues and redeems single-use login links.
package magiclink

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/metrics"
	"codeberg.org/mathrix/autonomouslab/internal/models"
)

const (
	// TokenLength is the number of random bytes in a token.
	TokenLength = 32
	// DefaultTTL is how long a link stays valid.
	DefaultTTL = 30 * time.Minute
)

var (
	// ErrInvalidToken is returned for unknown, used or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidEmail is returned for addresses that fail validation.
	ErrInvalidEmail = errors.New("invalid email")
)

// Store persists token hashes until they are redeemed or expire.
type Store interface {
	Save(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
	// Consume removes the token and returns its email. At most one call
	// succeeds per token.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// AccessChecker reports whether an email holds an access record.
type AccessChecker interface {
	HasAccess(ctx context.Context, email string) (bool, error)
}

// Sender delivers the link.
type Sender interface {
	SendMagicLink(ctx context.Context, to, token string) error
}

// Service issues and redeems magic links.
type Service struct {
	store  Store
	access AccessChecker
	sender Sender
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a Service. A zero ttl uses DefaultTTL.
func NewService(store Store, access AccessChecker, sender Sender, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:  store,
		access: access,
		sender: sender,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateToken returns a random hex token and its SHA-256 hash.
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating token: %w", err)
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hash of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Request issues a link for email. Addresses without an access record
// get no link but no error either, so callers cannot probe for buyers.
func (s *Service) Request(ctx context.Context, email string) error {
	if !models.ValidEmail(email) {
		return ErrInvalidEmail
	}
	email = models.NormalizeEmail(email)

	ok, err := s.access.HasAccess(ctx, email)
	if err != nil {
		return fmt.Errorf("checking access: %w", err)
	}
	if !ok {
		metrics.MagicLinks.WithLabelValues("skipped").Inc()
		slog.Debug("magic link requested for unknown email")
		return nil
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, email, hash, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	if err := s.sender.SendMagicLink(ctx, email, token); err != nil {
		return err
	}

	metrics.MagicLinks.WithLabelValues("issued").Inc()
	return nil
}

// Redeem consumes token and returns the email it was issued for.
func (s *Service) Redeem(ctx context.Context, token string) (string, error) {
	if len(token) != 2*TokenLength {
		metrics.MagicLinks.WithLabelValues("rejected").Inc()
		return "", ErrInvalidToken
	}
	if _, err := hex.DecodeString(token); err != nil {
		metrics.MagicLinks.WithLabelValues("rejected").Inc()
		return "", ErrInvalidToken
	}

	email, err := s.store.Consume(ctx, HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			metrics.MagicLinks.WithLabelValues("rejected").Inc()
		}
		return "", err
	}

	metrics.MagicLinks.WithLabelValues("redeemed").Inc()
	return email, nil
}
