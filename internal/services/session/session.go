// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and reads the signed reader cookies.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"github.com/gorilla/securecookie"
)

// accessMarker is the only value the access cookie may decode to.
const accessMarker = "true"

// Manager encodes the email and access cookies.
type Manager struct {
	codec        *securecookie.SecureCookie
	emailCookie  string
	accessCookie string
	maxAge       int
	secure       bool
}

// NewManager creates a cookie manager from config.
// An empty hash key generates a random one, so cookies do not survive restarts.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if hashKey == nil {
		hashKey = make([]byte, 32)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, fmt.Errorf("generating session hash key: %w", err)
		}
		slog.Warn("no session hash key configured, generated a temporary one")
	}

	blockKey, err := decodeKey(cfg.BlockKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session block key: %w", err)
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:        codec,
		emailCookie:  cfg.EmailCookie,
		accessCookie: cfg.AccessCookie,
		maxAge:       cfg.MaxAge,
		secure:       secure,
	}, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// EmailCookie returns the HTTP-only cookie identifying the reader.
func (m *Manager) EmailCookie(email string) (*http.Cookie, error) {
	value, err := m.codec.Encode(m.emailCookie, models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("encoding email cookie: %w", err)
	}
	return m.cookie(m.emailCookie, value, true), nil
}

// AccessCookie returns the marker cookie readable by the client.
func (m *Manager) AccessCookie() (*http.Cookie, error) {
	value, err := m.codec.Encode(m.accessCookie, accessMarker)
	if err != nil {
		return nil, fmt.Errorf("encoding access cookie: %w", err)
	}
	return m.cookie(m.accessCookie, value, false), nil
}

// Email returns the reader email from the request, or "" when the
// cookie is missing, expired or tampered with.
func (m *Manager) Email(r *http.Request) string {
	var email string
	if !m.decode(r, m.emailCookie, &email) {
		return ""
	}
	return models.NormalizeEmail(email)
}

// HasAccessMarker reports whether the request carries a valid access cookie.
func (m *Manager) HasAccessMarker(r *http.Request) bool {
	var marker string
	return m.decode(r, m.accessCookie, &marker) && marker == accessMarker
}

// Clear returns expired versions of both cookies.
func (m *Manager) Clear() []*http.Cookie {
	email := m.cookie(m.emailCookie, "", true)
	email.MaxAge = -1
	email.Expires = time.Unix(0, 0)

	access := m.cookie(m.accessCookie, "", false)
	access.MaxAge = -1
	access.Expires = time.Unix(0, 0)

	return []*http.Cookie{email, access}
}

func (m *Manager) decode(r *http.Request, name string, dst *string) bool {
	c, err := r.Cookie(name)
	if err != nil {
		return false
	}
	return m.codec.Decode(name, c.Value, dst) == nil
}

func (m *Manager) cookie(name, value string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   m.maxAge,
		Expires:  time.Now().Add(time.Duration(m.maxAge) * time.Second),
		HttpOnly: httpOnly,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
