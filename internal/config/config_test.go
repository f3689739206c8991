// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestShouldUseTLS(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		host     string
		expected bool
	}{
		{"off mode", "off", "example.com", false},
		{"acme mode", "acme", "localhost", true},
		{"manual mode", "manual", "localhost", true},
		{"auto mode with localhost", "auto", "localhost", false},
		{"auto mode with remote host", "auto", "example.com", true},
		{"empty mode with remote host", "", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldUseTLS(tt.mode, tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name: "localhost HTTP default port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 80},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost",
		},
		{
			name: "localhost HTTP custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
				TLS:    TLSConfig{Mode: "off"},
			},
			expected: "http://localhost:8080",
		},
		{
			name: "manual TLS custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "example.com", Port: 8443},
				TLS:    TLSConfig{Mode: "manual"},
			},
			expected: "https://example.com:8443",
		},
		{
			name: "ACME mode forces port 443",
			cfg: &Config{
				Server: ServerConfig{Host: "example.com", Port: 8080},
				TLS:    TLSConfig{Mode: "acme"},
			},
			expected: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestParseAmounts(t *testing.T) {
	amounts, err := ParseAmounts("1999, 4999")
	require.NoError(t, err)
	assert.Equal(t, []int64{1999, 4999}, amounts)

	_, err = ParseAmounts("1999,abc")
	require.Error(t, err)

	_, err = ParseAmounts("-5")
	require.Error(t, err)

	_, err = ParseAmounts(" , ")
	assert.Error(t, err)
}

func TestApplySMTPDefaults(t *testing.T) {
	t.Run("from falls back to username", func(t *testing.T) {
		cfg := &Config{SMTP: SMTPConfig{Username: "mailer@example.com", Port: 587}}

		applySMTPDefaults(cfg)

		assert.Equal(t, "mailer@example.com", cfg.SMTP.From)
		assert.False(t, cfg.SMTP.TLS)
	})

	t.Run("port 465 implies TLS", func(t *testing.T) {
		cfg := &Config{SMTP: SMTPConfig{From: "a@example.com", Port: 465}}

		applySMTPDefaults(cfg)

		assert.Equal(t, "a@example.com", cfg.SMTP.From)
		assert.True(t, cfg.SMTP.TLS)
	})
}

func TestS3ConfigEnabled(t *testing.T) {
	assert.False(t, S3Config{}.Enabled())
	assert.False(t, S3Config{Bucket: "b", Region: "eu-west-2"}.Enabled())
	assert.False(t, S3Config{Bucket: "b", Region: "eu-west-2", Key: "book.pdf"}.Enabled())
	assert.True(t, S3Config{
		Bucket: "b", Region: "eu-west-2", Key: "book.pdf",
		AccessKeyID: "AKID", SecretAccessKey: "secret",
	}.Enabled())
}

func TestFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, f := range Flags() {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "database-dsn", "tls-mode",
		"session-email-cookie", "smtp-host", "stripe-secret-key",
		"stripe-allowed-amounts", "magic-link-ttl", "amqp-url", "s3-bucket",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := NewFromCLI(cmd)
			require.NoError(t, err)

			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "user_email", cfg.Session.EmailCookie)
			assert.Equal(t, "ebook_access", cfg.Session.AccessCookie)
			assert.Equal(t, 31536000, cfg.Session.MaxAge)
			assert.Equal(t, "gbp", cfg.Stripe.Currency)
			assert.Equal(t, []int64{1999, 4999}, cfg.Stripe.AllowedAmounts)
			assert.Equal(t, 30*time.Minute, cfg.MagicLink.TTL)
			assert.Equal(t, "sql", cfg.MagicLink.Store)
			assert.False(t, cfg.SecureCookies())

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := NewFromCLI(cmd)
			require.NoError(t, err)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
			assert.True(t, cfg.SecureCookies())
			assert.Equal(t, []int64{500}, cfg.Stripe.AllowedAmounts)
			assert.Equal(t, "eur", cfg.Stripe.Currency)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com/",
		"--stripe-allowed-amounts", "500",
		"--stripe-currency", "EUR",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}

func TestNewFromCLI_InvalidAmounts(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := NewFromCLI(cmd)
			return err
		},
	}

	err := app.Run(context.Background(), []string{"test", "--stripe-allowed-amounts", "ten"})
	assert.Error(t, err)
}
