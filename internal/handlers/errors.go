// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	msgInvalidEmail   = "Invalid email."
	msgInvalidAmount  = "Invalid amount."
	msgInvalidRequest = "Invalid request body."
	msgInternal       = "Internal Server Error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StatusResponse is the JSON body of success/failure replies.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func validationError(c echo.Context, message, field string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Field: field})
}

func failure(c echo.Context, code int, message string) error {
	return c.JSON(code, StatusResponse{Success: false, Message: message})
}

// MethodNotAllowed answers requests with an unsupported verb.
func MethodNotAllowed(c echo.Context) error {
	return echo.ErrMethodNotAllowed
}

// ErrorHandler renders errors as JSON. Internal details are logged, never
// returned to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := msgInternal

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok && code < http.StatusInternalServerError {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, ErrorResponse{Message: message})
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
