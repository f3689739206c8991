// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON API.
package handlers

import (
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/repository"
	"codeberg.org/mathrix/autonomouslab/internal/services/access"
	"codeberg.org/mathrix/autonomouslab/internal/services/ebook"
	"codeberg.org/mathrix/autonomouslab/internal/services/email"
	"codeberg.org/mathrix/autonomouslab/internal/services/magiclink"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"codeberg.org/mathrix/autonomouslab/internal/services/session"
	"github.com/labstack/echo/v4"
)

// Deps holds the services the handlers need.
type Deps struct { //nolint:govet // fieldalignment: readability over optimization
	Repo          *repository.Repository
	Cookies       *session.Manager
	Gate          *access.Gate
	Granter       *access.Granter
	Intents       *payment.IntentCreator
	MagicLinks    *magiclink.Service
	Mailer        *email.Service
	Library       *ebook.Library
	Downloads     *ebook.Downloads
	Publisher     events.Publisher
	WebhookSecret string
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	Deps
}

// New creates a new Handlers instance.
func New(deps Deps) *Handlers {
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	return &Handlers{Deps: deps}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.Repo != nil {
		if err := h.Repo.DB().PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
