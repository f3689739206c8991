// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode is how the listener terminates TLS.
type TLSMode string

const (
	// TLSModeOff serves plain HTTP: local development, or a reverse proxy
	// terminating TLS in front of the service.
	TLSModeOff    TLSMode = "off"
	TLSModeACME   TLSMode = "acme"
	TLSModeManual TLSMode = "manual"
)

// certRenewWarning is how close to expiry a manual certificate gets logged.
const certRenewWarning = 14 * 24 * time.Hour

// TLSResult is the resolved listener setup.
type TLSResult struct {
	TLSConfig   *tls.Config
	CertManager *autocert.Manager // acme only
	HTTPHandler http.Handler      // acme challenge and redirect on :80
	Mode        TLSMode
}

// SecureCookies reports whether session cookies get the Secure flag. A
// listener that terminates TLS always qualifies; a plain listener only when
// the public base URL is https, as it is behind a proxy.
func (r *TLSResult) SecureCookies(cfg *config.Config) bool {
	return r.Mode != TLSModeOff || cfg.SecureCookies()
}

// SetupTLS resolves the TLS mode and loads what that mode needs.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	mode, err := resolveTLSMode(&cfg.TLS, cfg.Server.Host)
	if err != nil {
		return nil, err
	}

	switch mode {
	case TLSModeACME:
		if err := portsFree(80, 443); err != nil {
			return nil, fmt.Errorf("acme mode: %w", err)
		}
		slog.Info("tls: acme", "host", cfg.Server.Host, "email", cfg.TLS.Email)
		return setupACME(cfg)
	case TLSModeManual:
		slog.Info("tls: manual", "cert", cfg.TLS.CertFile)
		return setupManual(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	default:
		if !config.IsLocalhost(cfg.Server.Host) {
			slog.Info("tls: off, expecting a proxy to terminate TLS", "base_url", cfg.Server.BaseURL)
		}
		return &TLSResult{Mode: TLSModeOff}, nil
	}
}

// resolveTLSMode picks the mode from the tls-mode flag. In auto mode a
// localhost host serves plain HTTP, certificate files select manual mode, an
// ACME email on a DNS host selects acme, and anything else serves plain HTTP
// for a proxy.
func resolveTLSMode(cfg *config.TLSConfig, host string) (TLSMode, error) {
	switch strings.ToLower(cfg.Mode) {
	case "off":
		return TLSModeOff, nil
	case "acme":
		if err := acmeHost(host, cfg.Email); err != nil {
			return "", err
		}
		return TLSModeACME, nil
	case "manual":
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return "", fmt.Errorf("manual TLS mode requires tls-cert-file and tls-key-file")
		}
		return TLSModeManual, nil
	case "auto", "":
	default:
		return "", fmt.Errorf("unknown TLS mode %q", cfg.Mode)
	}

	switch {
	case config.IsLocalhost(host):
		return TLSModeOff, nil
	case cfg.CertFile != "" && cfg.KeyFile != "":
		return TLSModeManual, nil
	case acmeHost(host, cfg.Email) == nil:
		return TLSModeACME, nil
	default:
		return TLSModeOff, nil
	}
}

// acmeHost checks that Let's Encrypt can issue a certificate for host.
func acmeHost(host, email string) error {
	switch {
	case config.IsLocalhost(host):
		return fmt.Errorf("acme mode cannot serve %q", host)
	case net.ParseIP(host) != nil:
		return fmt.Errorf("acme mode needs a DNS name, got IP %s", host)
	case email == "":
		return fmt.Errorf("acme mode requires tls-email")
	}
	return nil
}

// portsFree fails when any of ports cannot be bound.
func portsFree(ports ...int) error {
	lc := &net.ListenConfig{}
	for _, port := range ports {
		ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return fmt.Errorf("port %d unavailable: %w", port, err)
		}
		_ = ln.Close()
	}
	return nil
}

// setupACME configures autocert with a directory cache under CertDir.
func setupACME(cfg *config.Config) (*TLSResult, error) {
	cacheDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cache directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(cacheDir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &TLSResult{
		Mode:        TLSModeACME,
		TLSConfig:   tlsConfig,
		CertManager: manager,
		HTTPHandler: manager.HTTPHandler(nil),
	}, nil
}

// setupManual loads a certificate pair and warns when it is close to expiry.
func setupManual(certFile, keyFile string) (*TLSResult, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if time.Now().After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate %s expired on %s", certFile, leaf.NotAfter.Format(time.DateOnly))
	}
	if time.Until(leaf.NotAfter) < certRenewWarning {
		slog.Warn("certificate expires soon", "cert", certFile, "not_after", leaf.NotAfter)
	}
	slog.Info("certificate loaded", "subject", leaf.Subject.CommonName, "sha256", fingerprint(leaf.Raw))

	return &TLSResult{
		Mode: TLSModeManual,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// fingerprint formats the SHA-256 of a DER certificate as colon separated hex.
func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
