// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"github.com/labstack/echo/v4"
)

// DownloadURL is where buyers fetch the ebook.
const DownloadURL = "/api/ebook/download"

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	Email string `json:"email"`
}

// PaymentIntentRequest is the body of POST /api/create-payment-intent.
type PaymentIntentRequest struct {
	Email         string `json:"email"`
	AmountInPence int64  `json:"amountInPence"`
}

// Checkout records a lead and returns the download location.
func (h *Handlers) Checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, msgInvalidRequest, "")
	}
	if !models.ValidEmail(req.Email) {
		return validationError(c, msgInvalidEmail, "email")
	}

	if err := h.recordLead(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"downloadUrl": DownloadURL,
	})
}

// CreatePaymentIntent creates a provider intent for an allow-listed amount.
func (h *Handlers) CreatePaymentIntent(c echo.Context) error {
	var req PaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, msgInvalidRequest, "")
	}
	if !models.ValidEmail(req.Email) {
		return validationError(c, msgInvalidEmail, "email")
	}

	intent, err := h.Intents.Create(c.Request().Context(), req.Email, req.AmountInPence)
	if errors.Is(err, payment.ErrInvalidAmount) {
		return validationError(c, msgInvalidAmount, "amountInPence")
	}
	if err != nil {
		return err
	}

	if err := h.recordLead(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

func (h *Handlers) recordLead(ctx context.Context, email string) error {
	lead, created, err := h.Repo.UpsertLead(ctx, email)
	if err != nil {
		return err
	}
	if created {
		events.Emit(ctx, h.Publisher, events.New(events.LeadCreated, lead.Email, nil))
	}
	return nil
}
