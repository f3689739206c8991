// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	TLS       TLSConfig
	Session   SessionConfig
	SMTP      SMTPConfig
	SendGrid  SendGridConfig
	Stripe    StripeConfig
	MagicLink MagicLinkConfig
	AMQP      AMQPConfig
	S3        S3Config
	Ebook     EbookConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, manual, off
	CertDir  string // Directory for the ACME cache
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	StaticDir   string
	OwnerEmail  string // Recipient of contact form notifications
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	EmailCookie  string // Name of the signed email cookie
	AccessCookie string // Name of the access marker cookie
	MaxAge       int    // Cookie max age in seconds
	HashKey      string // 32-byte hex string for HMAC signing
	BlockKey     string // 32-byte hex string for AES encryption (optional)
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type SendGridConfig struct {
	APIKey string
}

type StripeConfig struct { //nolint:govet // fieldalignment not critical
	SecretKey      string
	WebhookSecret  string
	Currency       string
	AllowedAmounts []int64 // minor currency units
}

type MagicLinkConfig struct {
	TTL      time.Duration
	Store    string // sql, redis
	RedisURL string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Key             string // object key of the ebook file
}

// Enabled reports whether presigned S3 downloads can be used.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Key != "" && c.Region != "" &&
		c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type EbookConfig struct {
	ChaptersDir string
	FilePath    string
	FileName    string
}

func NewFromCLI(cmd *cli.Command) (*Config, error) {
	amounts, err := ParseAmounts(cmd.String("stripe-allowed-amounts"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			StaticDir:   cmd.String("static-dir"),
			OwnerEmail:  cmd.String("owner-email"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Session: SessionConfig{
			EmailCookie:  cmd.String("session-email-cookie"),
			AccessCookie: cmd.String("session-access-cookie"),
			MaxAge:       int(cmd.Int("session-max-age")),
			HashKey:      cmd.String("session-hash-key"),
			BlockKey:     cmd.String("session-block-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-user"),
			Password: cmd.String("smtp-pass"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-secure"),
		},
		SendGrid: SendGridConfig{
			APIKey: cmd.String("sendgrid-api-key"),
		},
		Stripe: StripeConfig{
			SecretKey:      cmd.String("stripe-secret-key"),
			WebhookSecret:  cmd.String("stripe-webhook-secret"),
			Currency:       strings.ToLower(cmd.String("stripe-currency")),
			AllowedAmounts: amounts,
		},
		MagicLink: MagicLinkConfig{
			TTL:      cmd.Duration("magic-link-ttl"),
			Store:    cmd.String("magic-link-store"),
			RedisURL: cmd.String("redis-url"),
		},
		AMQP: AMQPConfig{
			URL:      cmd.String("amqp-url"),
			Exchange: cmd.String("amqp-exchange"),
		},
		S3: S3Config{
			Bucket:          cmd.String("s3-bucket"),
			Region:          cmd.String("s3-region"),
			Endpoint:        cmd.String("s3-endpoint"),
			AccessKeyID:     cmd.String("s3-access-key-id"),
			SecretAccessKey: cmd.String("s3-secret-access-key"),
			Key:             cmd.String("s3-key"),
		},
		Ebook: EbookConfig{
			ChaptersDir: cmd.String("ebook-chapters-dir"),
			FilePath:    cmd.String("ebook-file"),
			FileName:    cmd.String("ebook-file-name"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	applySMTPDefaults(cfg)

	return cfg, nil
}

// applySMTPDefaults fills the sender address from the SMTP user and forces
// implicit TLS on port 465.
func applySMTPDefaults(cfg *Config) {
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	if cfg.SMTP.Port == 465 {
		cfg.SMTP.TLS = true
	}
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

// ParseAmounts parses a comma separated list of positive integer amounts.
func ParseAmounts(s string) ([]int64, error) {
	var amounts []int64
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid allowed amount %q", part)
		}
		amounts = append(amounts, n)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("at least one allowed amount is required")
	}
	return amounts, nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	scheme := "http"
	if shouldUseTLS(mode, host) {
		scheme = "https"
	}

	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

// source chains an environment variable with a key in the TOML config file.
func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL used in emailed links",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringFlag{
			Name:    "static-dir",
			Value:   "public",
			Usage:   "Directory with the landing page assets",
			Sources: source("STATIC_DIR", "server.static_dir"),
		},
		&cli.StringFlag{
			Name:    "owner-email",
			Usage:   "Address that receives contact form notifications",
			Sources: source("OWNER_EMAIL", "server.owner_email"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, acme, manual, off)",
			Sources: source("TLS_MODE", "tls.mode"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for the ACME certificate cache",
			Sources: source("TLS_CERT_DIR", "tls.cert_dir"),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: source("TLS_EMAIL", "tls.email"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: source("TLS_CERT_FILE", "tls.cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: source("TLS_KEY_FILE", "tls.key_file"),
		},
		// Session cookies
		&cli.StringFlag{
			Name:    "session-email-cookie",
			Value:   "user_email",
			Usage:   "Name of the signed email cookie",
			Sources: source("SESSION_EMAIL_COOKIE", "session.email_cookie"),
		},
		&cli.StringFlag{
			Name:    "session-access-cookie",
			Value:   "ebook_access",
			Usage:   "Name of the access marker cookie",
			Sources: source("SESSION_ACCESS_COOKIE", "session.access_cookie"),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   31536000, // one year
			Usage:   "Cookie max age in seconds",
			Sources: source("SESSION_MAX_AGE", "session.max_age"),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Cookie hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("SESSION_HASH_KEY", "session.hash_key"),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Cookie block key for encryption (32-byte hex, optional)",
			Sources: source("SESSION_BLOCK_KEY", "session.block_key"),
		},
		// SMTP
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-user",
			Usage:   "SMTP username",
			Sources: source("SMTP_USER", "smtp.user"),
		},
		&cli.StringFlag{
			Name:    "smtp-pass",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASS", "smtp.pass"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address (defaults to the SMTP user)",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "AutonomousLab by Mathrix",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-secure",
			Usage:   "Require TLS for SMTP",
			Sources: source("SMTP_SECURE", "smtp.secure"),
		},
		&cli.StringFlag{
			Name:    "sendgrid-api-key",
			Usage:   "SendGrid API key (takes precedence over SMTP)",
			Sources: source("SENDGRID_API_KEY", "sendgrid.api_key"),
		},
		// Stripe
		&cli.StringFlag{
			Name:    "stripe-secret-key",
			Usage:   "Stripe secret API key",
			Sources: source("STRIPE_SECRET_KEY", "stripe.secret_key"),
		},
		&cli.StringFlag{
			Name:    "stripe-webhook-secret",
			Usage:   "Stripe webhook endpoint signing secret",
			Sources: source("STRIPE_WEBHOOK_SECRET", "stripe.webhook_secret"),
		},
		&cli.StringFlag{
			Name:    "stripe-currency",
			Value:   "gbp",
			Usage:   "Currency of the payment intents",
			Sources: source("STRIPE_CURRENCY", "stripe.currency"),
		},
		&cli.StringFlag{
			Name:    "stripe-allowed-amounts",
			Value:   "1999,4999",
			Usage:   "Comma separated accepted prices in minor units",
			Sources: source("STRIPE_ALLOWED_AMOUNTS", "stripe.allowed_amounts"),
		},
		// Magic links
		&cli.DurationFlag{
			Name:    "magic-link-ttl",
			Value:   30 * time.Minute,
			Usage:   "Lifetime of magic login links",
			Sources: source("MAGIC_LINK_TTL", "magic_link.ttl"),
		},
		&cli.StringFlag{
			Name:    "magic-link-store",
			Value:   "sql",
			Usage:   "Magic link token store (sql, redis)",
			Sources: source("MAGIC_LINK_STORE", "magic_link.store"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "redis://localhost:6379/0",
			Usage:   "Redis URL for the redis token store",
			Sources: source("REDIS_URL", "redis.url"),
		},
		// Events
		&cli.StringFlag{
			Name:    "amqp-url",
			Usage:   "RabbitMQ URL for domain events (disabled if empty)",
			Sources: source("AMQP_URL", "amqp.url"),
		},
		&cli.StringFlag{
			Name:    "amqp-exchange",
			Value:   "ex.ebook",
			Usage:   "Exchange that receives domain events",
			Sources: source("AMQP_EXCHANGE", "amqp.exchange"),
		},
		// S3
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "Bucket holding the ebook file",
			Sources: source("S3_BUCKET", "s3.bucket"),
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Value:   "eu-west-2",
			Usage:   "S3 region",
			Sources: source("S3_REGION", "s3.region"),
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "Custom S3 endpoint (R2, MinIO)",
			Sources: source("S3_ENDPOINT", "s3.endpoint"),
		},
		&cli.StringFlag{
			Name:    "s3-access-key-id",
			Usage:   "S3 access key ID",
			Sources: source("S3_ACCESS_KEY_ID", "s3.access_key_id"),
		},
		&cli.StringFlag{
			Name:    "s3-secret-access-key",
			Usage:   "S3 secret access key",
			Sources: source("S3_SECRET_ACCESS_KEY", "s3.secret_access_key"),
		},
		&cli.StringFlag{
			Name:    "s3-key",
			Usage:   "Object key of the ebook file",
			Sources: source("S3_KEY", "s3.key"),
		},
		// Ebook
		&cli.StringFlag{
			Name:    "ebook-chapters-dir",
			Value:   "./content/chapters",
			Usage:   "Directory with markdown chapters",
			Sources: source("EBOOK_CHAPTERS_DIR", "ebook.chapters_dir"),
		},
		&cli.StringFlag{
			Name:    "ebook-file",
			Value:   "./content/ebook.pdf",
			Usage:   "Local ebook file served when S3 is not configured",
			Sources: source("EBOOK_FILE", "ebook.file"),
		},
		&cli.StringFlag{
			Name:    "ebook-file-name",
			Value:   "autonomouslab.pdf",
			Usage:   "File name offered to the browser",
			Sources: source("EBOOK_FILE_NAME", "ebook.file_name"),
		},
	}
}
