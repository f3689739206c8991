// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"codeberg.org/mathrix/autonomouslab/internal/services/ebook"
	"github.com/labstack/echo/v4"
)

// RequireAccess rejects requests that fail the access gate.
func (h *Handlers) RequireAccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !h.Gate.Check(c.Request().Context(), c.Request()) {
				return c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access required."})
			}
			return next(c)
		}
	}
}

// Chapters lists the ebook chapters.
func (h *Handlers) Chapters(c echo.Context) error {
	chapters, err := h.Library.Chapters()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"chapters": chapters})
}

// Chapter renders one chapter as HTML.
func (h *Handlers) Chapter(c echo.Context) error {
	ch, err := h.Library.Render(c.Param("slug"))
	if errors.Is(err, ebook.ErrChapterNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "Chapter not found."})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ch)
}

// Download redirects to a presigned URL or serves the local file.
func (h *Handlers) Download(c echo.Context) error {
	if h.Downloads.UsesS3() {
		url, err := h.Downloads.PresignedURL(c.Request().Context())
		if err != nil {
			return err
		}
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.Redirect(http.StatusFound, url)
	}

	path, name, err := h.Downloads.LocalFile()
	if errors.Is(err, ebook.ErrFileUnavailable) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "Ebook file not available."})
	}
	if err != nil {
		return err
	}
	return c.Attachment(path, name)
}
