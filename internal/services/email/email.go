// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends the transactional messages of the site.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/metrics"
	"codeberg.org/mathrix/autonomouslab/internal/models"
)

// ErrNotConfigured is returned when no transport is configured.
var ErrNotConfigured = errors.New("email is not configured")

// Message is a single outbound email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers a message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// Service renders and sends the site's emails.
type Service struct {
	transport  Transport
	baseURL    string
	ownerEmail string
}

// NewService creates a Service. transport may be nil, in which case every
// send returns ErrNotConfigured.
func NewService(transport Transport, baseURL, ownerEmail string) *Service {
	return &Service{
		transport:  transport,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		ownerEmail: ownerEmail,
	}
}

// NewFromConfig picks SendGrid when an API key is set, else SMTP when a
// host is set, else no transport.
func NewFromConfig(cfg *config.Config) (*Service, error) {
	var transport Transport
	switch {
	case cfg.SendGrid.APIKey != "":
		transport = NewSendGridTransport(cfg.SendGrid.APIKey, cfg.SMTP.From, cfg.SMTP.FromName)
		slog.Info("email transport", "kind", "sendgrid")
	case cfg.SMTP.Host != "":
		t, err := NewSMTPTransport(&cfg.SMTP)
		if err != nil {
			return nil, err
		}
		transport = t
		slog.Info("email transport", "kind", "smtp", "host", cfg.SMTP.Host)
	default:
		slog.Warn("no email transport configured")
	}

	owner := cfg.Server.OwnerEmail
	if owner == "" {
		owner = cfg.SMTP.From
	}
	return NewService(transport, cfg.Server.BaseURL, owner), nil
}

// Configured reports whether a transport is available.
func (s *Service) Configured() bool {
	return s.transport != nil
}

// MagicLinkURL builds the redemption link for token.
func (s *Service) MagicLinkURL(token string) string {
	return fmt.Sprintf("%s/api/magic-login?token=%s", s.baseURL, token)
}

// SendMagicLink emails a login link to an existing reader.
func (s *Service) SendMagicLink(ctx context.Context, to, token string) error {
	msg, err := magicLinkMessage(to, s.MagicLinkURL(token))
	if err != nil {
		return err
	}
	return s.send(ctx, "magic_link", msg)
}

// SendContactRequest notifies the owner about a contact form submission.
func (s *Service) SendContactRequest(ctx context.Context, req *models.ContactRequest) error {
	if s.ownerEmail == "" {
		return fmt.Errorf("%w: no owner address", ErrNotConfigured)
	}
	msg, err := contactMessage(s.ownerEmail, req)
	if err != nil {
		return err
	}
	return s.send(ctx, "contact", msg)
}

// SendPaymentConfirmation emails a receipt for amountInPence.
func (s *Service) SendPaymentConfirmation(ctx context.Context, to string, amountInPence int64) error {
	msg, err := paymentConfirmationMessage(to, amountInPence, s.ownerEmail)
	if err != nil {
		return err
	}
	return s.send(ctx, "payment_confirmation", msg)
}

func (s *Service) send(ctx context.Context, kind string, msg *Message) error {
	if s.transport == nil {
		return ErrNotConfigured
	}
	err := s.transport.Send(ctx, msg)
	metrics.RecordEmail(kind, err)
	if err != nil {
		return fmt.Errorf("sending %s email: %w", kind, err)
	}
	return nil
}
