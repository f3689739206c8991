// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/services/magiclink"
	"github.com/labstack/echo/v4"
)

// MagicLoginRequest is the body of POST /api/magic-login.
type MagicLoginRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink emails a login link. The reply is the same whether or
// not the address belongs to a reader.
func (h *Handlers) RequestMagicLink(c echo.Context) error {
	var req MagicLoginRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, msgInvalidEmail)
	}

	err := h.MagicLinks.Request(c.Request().Context(), req.Email)
	if errors.Is(err, magiclink.ErrInvalidEmail) {
		return failure(c, http.StatusBadRequest, msgInvalidEmail)
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to issue magic link", "error", err)
	}

	return c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "Magic link sent to email."})
}

// RedeemMagicLink consumes a token and sets the email cookie.
func (h *Handlers) RedeemMagicLink(c echo.Context) error {
	email, err := h.MagicLinks.Redeem(c.Request().Context(), c.QueryParam("token"))
	if errors.Is(err, magiclink.ErrInvalidToken) {
		return failure(c, http.StatusBadRequest, "Invalid or expired link.")
	}
	if err != nil {
		return err
	}

	if err := h.setReaderCookies(c, email, false); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "Logged in."})
}
