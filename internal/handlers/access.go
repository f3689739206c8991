// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/services/access"
	"github.com/labstack/echo/v4"
)

// SetAccessRequest is the optional body of POST /api/set-access.
type SetAccessRequest struct {
	Email string `json:"email"`
}

// CheckAccess reports whether the request may read the ebook.
func (h *Handlers) CheckAccess(c echo.Context) error {
	ok := h.Gate.Check(c.Request().Context(), c.Request())
	return c.JSON(http.StatusOK, map[string]bool{"hasAccess": ok})
}

// SetAccess verifies payment for the body or cookie email and issues the
// access cookies.
func (h *Handlers) SetAccess(c echo.Context) error {
	var req SetAccessRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, msgInvalidRequest, "")
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !models.ValidEmail(email) {
		return validationError(c, msgInvalidEmail, "email")
	}
	if email == "" {
		email = h.Cookies.Email(c.Request())
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return failure(c, http.StatusUnauthorized, "User not authenticated.")
	}

	err := h.Granter.Grant(c.Request().Context(), email)
	if errors.Is(err, access.ErrNotPaid) {
		return failure(c, http.StatusForbidden, "No successful payment found for this email.")
	}
	if err != nil {
		return err
	}

	if err := h.setReaderCookies(c, email, true); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatusResponse{Success: true})
}

func (h *Handlers) setReaderCookies(c echo.Context, email string, withMarker bool) error {
	emailCookie, err := h.Cookies.EmailCookie(email)
	if err != nil {
		return err
	}
	c.SetCookie(emailCookie)

	if withMarker {
		marker, err := h.Cookies.AccessCookie()
		if err != nil {
			return err
		}
		c.SetCookie(marker)
	}
	return nil
}

// Logout clears the reader cookies.
func (h *Handlers) Logout(c echo.Context) error {
	for _, cookie := range h.Cookies.Clear() {
		c.SetCookie(cookie)
	}
	return c.JSON(http.StatusOK, StatusResponse{Success: true})
}
