// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
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
	"codeberg.org/mathrix/autonomouslab/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testHashKey       = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testWebhookSecret = "whsec_test_secret"
	emailCookie       = "user_email"
	accessCookie      = "ebook_access"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) ListIntents(ctx context.Context, startingAfter string, limit int64) (*payment.Page, error) {
	args := m.Called(ctx, startingAfter, limit)
	page, _ := args.Get(0).(*payment.Page)
	return page, args.Error(1)
}

func (m *mockProvider) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.CreatedIntent, error) {
	args := m.Called(ctx, params)
	created, _ := args.Get(0).(*payment.CreatedIntent)
	return created, args.Error(1)
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []*email.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg *email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) messages() []*email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*email.Message(nil), f.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	e         *echo.Echo
	h         *handlers.Handlers
	repo      *repository.Repository
	provider  *mockProvider
	transport *fakeTransport
	publisher *recordingPublisher
	ebookFile string
}

type handlersDeps = handlers.Deps

type envOption func(*handlersDeps)

func withoutMailer() envOption {
	return func(d *handlers.Deps) {
		d.Mailer = email.NewService(nil, "http://localhost:8080", "owner@example.com")
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	cookies, err := session.NewManager(&config.SessionConfig{
		EmailCookie:  emailCookie,
		AccessCookie: accessCookie,
		MaxAge:       3600,
		HashKey:      testHashKey,
	}, false)
	require.NoError(t, err)

	provider := &mockProvider{}
	transport := &fakeTransport{}
	publisher := &recordingPublisher{}
	mailer := email.NewService(transport, "http://localhost:8080", "owner@example.com")

	ebookFile := filepath.Join(t.TempDir(), "book.pdf")
	require.NoError(t, os.WriteFile(ebookFile, []byte("%PDF-1.4 test"), 0o600))

	deps := handlers.Deps{
		Repo:       repo,
		Cookies:    cookies,
		Gate:       access.NewGate(cookies, repo),
		Granter:    access.NewGranter(payment.NewVerifier(provider, repo), repo, publisher),
		Intents:    payment.NewIntentCreator(provider, []int64{1999, 4999}, "gbp"),
		MagicLinks: magiclink.NewService(magiclink.NewSQLStore(repo), repo, mailer, 0),
		Mailer:     mailer,
		Library: ebook.NewLibrary(fstest.MapFS{
			"01-introduction.md": {Data: []byte("# Introduction\n\nWelcome to the *book*.\n")},
			"02-agents.md":       {Data: []byte("# Agents\n\nAgents plan and act.\n")},
		}),
		Downloads:     ebook.NewDownloads(config.S3Config{}, config.EbookConfig{FilePath: ebookFile, FileName: "autonomous-lab.pdf"}),
		Publisher:     publisher,
		WebhookSecret: testWebhookSecret,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		e:         echo.New(),
		h:         handlers.New(deps),
		repo:      repo,
		provider:  provider,
		transport: transport,
		publisher: publisher,
		ebookFile: ebookFile,
	}
}

// request builds an Echo context with a JSON body and optional cookies.
func (env *testEnv) request(method, target, body string, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	var c echo.Context
	var rec *httptest.ResponseRecorder
	if body == "" {
		c, rec = testutil.NewEchoContextWithCookies(env.e, method, target, nil, cookies...)
	} else {
		c, rec = testutil.NewEchoContextWithCookies(env.e, method, target, strings.NewReader(body), cookies...)
	}
	return c, rec
}

func (env *testEnv) expectNoPayments() {
	env.provider.On("ListIntents", mock.Anything, "", int64(100)).
		Return(&payment.Page{}, nil)
}

func (env *testEnv) expectPayment(emailAddr string) {
	env.provider.On("ListIntents", mock.Anything, "", int64(100)).
		Return(&payment.Page{Intents: []payment.Intent{{
			ID:           "pi_paid",
			Status:       "succeeded",
			ReceiptEmail: emailAddr,
			Amount:       1999,
			Currency:     "gbp",
			Created:      time.Now(),
		}}}, nil)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

// lastToken extracts the token from the most recent magic link email.
func (env *testEnv) lastToken(t *testing.T) string {
	t.Helper()
	msgs := env.transport.messages()
	require.NotEmpty(t, msgs)
	m := tokenPattern.FindStringSubmatch(msgs[len(msgs)-1].Text)
	require.Len(t, m, 2)
	return m[1]
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
