// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"os"
	"sort"
	"strings"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/handlers"
	"codeberg.org/mathrix/autonomouslab/internal/metrics"
	"github.com/labstack/echo/v4"
)

var routedMethods = []string{
	echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE,
}

// methods maps HTTP verbs to handlers for one path.
type methods map[string]echo.HandlerFunc

func setupRoutes(e *echo.Echo, h *handlers.Handlers, cfg *config.Config) {
	e.GET("/health", h.Health)
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	gated := h.RequireAccess()

	route(api, "/check-access", methods{echo.GET: h.CheckAccess})
	route(api, "/set-access", methods{echo.POST: h.SetAccess})
	route(api, "/logout", methods{echo.POST: h.Logout})
	route(api, "/magic-login", methods{
		echo.GET:  h.RedeemMagicLink,
		echo.POST: withMiddleware(h.RequestMagicLink, rateLimiter()),
	})
	route(api, "/checkout", methods{echo.POST: h.Checkout})
	route(api, "/create-payment-intent", methods{echo.POST: h.CreatePaymentIntent})
	route(api, "/contact", methods{echo.POST: h.Contact}, rateLimiter())
	route(api, "/payment-confirmation", methods{echo.POST: h.PaymentConfirmation}, rateLimiter())
	route(api, "/stripe/webhook", methods{echo.POST: h.StripeWebhook})

	route(api, "/ebook/chapters", methods{echo.GET: h.Chapters}, gated)
	route(api, "/ebook/chapters/:slug", methods{echo.GET: h.Chapter}, gated)
	route(api, "/ebook/download", methods{echo.GET: h.Download}, gated)

	if info, err := os.Stat(cfg.Server.StaticDir); err == nil && info.IsDir() {
		e.Static("/", cfg.Server.StaticDir)
	}
}

// route registers the handlers of one path and answers every other verb
// with 405 and an Allow header.
func route(g *echo.Group, path string, m methods, mw ...echo.MiddlewareFunc) {
	allowed := make([]string, 0, len(m))
	for verb := range m {
		allowed = append(allowed, verb)
	}
	sort.Strings(allowed)
	notAllowed := methodNotAllowed(strings.Join(allowed, ", "))

	for _, verb := range routedMethods {
		if handler, ok := m[verb]; ok {
			g.Add(verb, path, handler, mw...)
			continue
		}
		g.Add(verb, path, notAllowed)
	}
}

func methodNotAllowed(allow string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAllow, allow)
		return handlers.MethodNotAllowed(c)
	}
}

func withMiddleware(h echo.HandlerFunc, mw ...echo.MiddlewareFunc) echo.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
