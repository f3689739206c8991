// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/models"
	"github.com/labstack/echo/v4"
)

// PaymentConfirmationRequest is the body of POST /api/payment-confirmation.
type PaymentConfirmationRequest struct {
	Email         string `json:"email"`
	AmountInPence int64  `json:"amountInPence"`
}

// PaymentConfirmation emails the buyer a receipt.
func (h *Handlers) PaymentConfirmation(c echo.Context) error {
	var req PaymentConfirmationRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, msgInvalidRequest, "")
	}
	if !models.ValidEmail(req.Email) {
		return validationError(c, msgInvalidEmail, "email")
	}
	if req.AmountInPence <= 0 {
		return validationError(c, msgInvalidAmount, "amountInPence")
	}

	if !h.Mailer.Configured() {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "SMTP is not configured."})
	}

	email := models.NormalizeEmail(req.Email)
	if err := h.Mailer.SendPaymentConfirmation(c.Request().Context(), email, req.AmountInPence); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StatusResponse{Success: true})
}
