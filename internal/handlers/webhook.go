// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 64 << 10

// StripeWebhook records succeeded payment intents into the ledger and
// grants their buyers access.
func (h *Handlers) StripeWebhook(c echo.Context) error {
	if h.WebhookSecret == "" {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Webhook not configured."})
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return validationError(c, msgInvalidRequest, "")
	}

	intent, err := payment.ParseSucceededIntent(payload, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret)
	if errors.Is(err, payment.ErrInvalidSignature) {
		slog.WarnContext(c.Request().Context(), "rejected webhook", "error", err)
		return validationError(c, "Invalid signature.", "")
	}
	if err != nil {
		return validationError(c, msgInvalidRequest, "")
	}

	if intent != nil {
		if err := h.Granter.GrantFromIntent(c.Request().Context(), intent); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
