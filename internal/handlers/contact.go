// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"github.com/labstack/echo/v4"
)

const (
	maxNameLength    = 200
	maxPhoneLength   = 50
	maxMessageLength = 5000
)

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Message *string `json:"message"`
}

// validate returns the first failing message and field.
func (r *ContactRequest) validate() (message, field string) {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return "Name is required.", "name"
	case utf8.RuneCountInString(name) > maxNameLength:
		return "Name is too long.", "name"
	case !models.ValidEmail(r.Email):
		return msgInvalidEmail, "email"
	case r.Phone != nil && utf8.RuneCountInString(*r.Phone) > maxPhoneLength:
		return "Phone is too long.", "phone"
	case r.Message != nil && utf8.RuneCountInString(*r.Message) > maxMessageLength:
		return "Message is too long.", "message"
	}
	return "", ""
}

// Contact stores a contact request and notifies the owner.
func (h *Handlers) Contact(c echo.Context) error {
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, msgInvalidRequest, "")
	}
	if message, field := req.validate(); message != "" {
		return validationError(c, message, field)
	}

	if !h.Mailer.Configured() {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Email is not configured."})
	}

	ctx := c.Request().Context()
	record := &models.ContactRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   trimmedOrNil(req.Phone),
		Message: trimmedOrNil(req.Message),
	}
	if err := h.Repo.CreateContactRequest(ctx, record); err != nil {
		return err
	}
	events.Emit(ctx, h.Publisher, events.New(events.ContactReceived, record.Email, nil))

	if err := h.Mailer.SendContactRequest(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to send contact notification", "id", record.ID, "error", err)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Success: true,
		Message: "Request received. We'll be in touch soon.",
	})
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
