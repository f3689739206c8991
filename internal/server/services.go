// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/handlers"
	"codeberg.org/mathrix/autonomouslab/internal/repository"
	"codeberg.org/mathrix/autonomouslab/internal/services/access"
	"codeberg.org/mathrix/autonomouslab/internal/services/ebook"
	"codeberg.org/mathrix/autonomouslab/internal/services/email"
	"codeberg.org/mathrix/autonomouslab/internal/services/magiclink"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"codeberg.org/mathrix/autonomouslab/internal/services/session"
	"github.com/vinovest/sqlx"
)

const sweepInterval = 15 * time.Minute

// services holds the wired application services.
type services struct {
	deps    handlers.Deps
	closers []func() error
}

// newServices wires every service from cfg. Background workers stop when
// ctx is cancelled.
func newServices(ctx context.Context, cfg *config.Config, db *sqlx.DB, secureCookies bool) (*services, error) {
	s := &services{}
	repo := repository.New(db)

	cookies, err := session.NewManager(&cfg.Session, secureCookies)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, publisher.Close)

	mailer, err := email.NewFromConfig(cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to configure email: %w", err)
	}

	var provider payment.Provider
	if cfg.Stripe.SecretKey != "" {
		provider = payment.NewStripeProvider(cfg.Stripe.SecretKey)
	} else {
		slog.Warn("stripe is not configured, payment scans and intents are disabled")
	}

	store, err := s.newTokenStore(ctx, cfg, repo)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.deps = handlers.Deps{
		Repo:          repo,
		Cookies:       cookies,
		Gate:          access.NewGate(cookies, repo),
		Granter:       access.NewGranter(payment.NewVerifier(provider, repo), repo, publisher),
		Intents:       payment.NewIntentCreator(provider, cfg.Stripe.AllowedAmounts, cfg.Stripe.Currency),
		MagicLinks:    magiclink.NewService(store, repo, mailer, cfg.MagicLink.TTL),
		Mailer:        mailer,
		Library:       ebook.NewLibrary(os.DirFS(cfg.Ebook.ChaptersDir)),
		Downloads:     ebook.NewDownloads(cfg.S3, cfg.Ebook),
		Publisher:     publisher,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}
	return s, nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQP.URL == "" {
		return events.Noop{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}
	slog.Info("publishing events", "exchange", cfg.AMQP.Exchange)
	return p, nil
}

func (s *services) newTokenStore(ctx context.Context, cfg *config.Config, repo *repository.Repository) (magiclink.Store, error) {
	switch cfg.MagicLink.Store {
	case "redis":
		rdb, err := magiclink.ConnectRedis(ctx, cfg.MagicLink.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rdb.Close)
		slog.Info("magic link store", "kind", "redis")
		return magiclink.NewRedisStore(rdb), nil
	case "sql", "":
		store := magiclink.NewSQLStore(repo)
		go store.RunSweeper(ctx, sweepInterval)
		slog.Info("magic link store", "kind", "sql")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown magic link store: %s", cfg.MagicLink.Store)
	}
}

// Close releases broker and cache connections.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Error("failed to close service", "error", err)
		}
	}
}
