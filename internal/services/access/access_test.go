// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package access_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/events"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/repository"
	"codeberg.org/mathrix/autonomouslab/internal/services/access"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"codeberg.org/mathrix/autonomouslab/internal/services/session"
	"codeberg.org/mathrix/autonomouslab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testHashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) HasPaid(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockVerifier) RecordIntent(ctx context.Context, intent *payment.Intent) error {
	return m.Called(ctx, intent).Error(0)
}

func newCookies(t *testing.T) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(&config.SessionConfig{
		EmailCookie:  "user_email",
		AccessCookie: "ebook_access",
		MaxAge:       3600,
		HashKey:      testHashKey,
	}, false)
	require.NoError(t, err)
	return mgr
}

func request(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/check-access", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestGate_NoCookies(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	gate := access.NewGate(newCookies(t), repo)

	assert.False(t, gate.Check(context.Background(), request()))
}

func TestGate_AccessMarker(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	cookies := newCookies(t)
	gate := access.NewGate(cookies, repo)

	marker, err := cookies.AccessCookie()
	require.NoError(t, err)

	assert.True(t, gate.Check(context.Background(), request(marker)))
}

func TestGate_ForgedMarker(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	gate := access.NewGate(newCookies(t), repo)

	req := request(&http.Cookie{Name: "ebook_access", Value: "true"})

	assert.False(t, gate.Check(context.Background(), req))
}

func TestGate_EmailWithRecord(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	cookies := newCookies(t)
	gate := access.NewGate(cookies, repo)

	emailCookie, err := cookies.EmailCookie("Reader@Example.com")
	require.NoError(t, err)

	assert.False(t, gate.Check(context.Background(), request(emailCookie)))

	testutil.GrantTestAccess(t, repo, "reader@example.com")

	assert.True(t, gate.Check(context.Background(), request(emailCookie)))
}

func TestGate_ClosedStoreDenies(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	cookies := newCookies(t)
	gate := access.NewGate(cookies, repo)

	emailCookie, err := cookies.EmailCookie("reader@example.com")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.False(t, gate.Check(context.Background(), request(emailCookie)))
}

func TestGrant_Paid(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	v.On("HasPaid", mock.Anything, "buyer@example.com").Return(true, nil)
	granter := access.NewGranter(v, repo, events.Noop{})

	err := granter.Grant(context.Background(), " Buyer@Example.com")

	require.NoError(t, err)
	rec, err := repo.GetAccessRecord(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, rec.HasAccess)
	assert.Equal(t, models.AccessSourcePaymentScan, rec.Source)
}

func TestGrant_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	v.On("HasPaid", mock.Anything, "buyer@example.com").Return(true, nil)
	granter := access.NewGranter(v, repo, events.Noop{})

	require.NoError(t, granter.Grant(context.Background(), "buyer@example.com"))
	require.NoError(t, granter.Grant(context.Background(), "buyer@example.com"))

	ok, err := repo.HasAccess(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGrant_NotPaidWritesNothing(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	v.On("HasPaid", mock.Anything, "buyer@example.com").Return(false, nil)
	granter := access.NewGranter(v, repo, events.Noop{})

	err := granter.Grant(context.Background(), "buyer@example.com")

	assert.ErrorIs(t, err, access.ErrNotPaid)
	_, err = repo.GetAccessRecord(context.Background(), "buyer@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGrant_VerifierError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	v.On("HasPaid", mock.Anything, mock.Anything).Return(false, errors.New("stripe down"))
	granter := access.NewGranter(v, repo, events.Noop{})

	err := granter.Grant(context.Background(), "buyer@example.com")

	require.Error(t, err)
	assert.NotErrorIs(t, err, access.ErrNotPaid)
}

func TestGrantFromIntent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	verifier := payment.NewVerifier(nil, repo)
	granter := access.NewGranter(verifier, repo, events.Noop{})
	ctx := context.Background()

	intent := &payment.Intent{
		ID:       "pi_1",
		Status:   models.PaymentStatusSucceeded,
		Metadata: map[string]string{"email": "Buyer@Example.com"},
		Amount:   1999,
		Currency: "gbp",
	}
	require.NoError(t, granter.GrantFromIntent(ctx, intent))

	rec, err := repo.GetAccessRecord(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AccessSourceLedger, rec.Source)

	paid, err := verifier.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestGrantFromIntent_IgnoresUnsucceeded(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	granter := access.NewGranter(v, repo, events.Noop{})

	err := granter.GrantFromIntent(context.Background(), &payment.Intent{ID: "pi_1", Status: "processing"})

	require.NoError(t, err)
	v.AssertNotCalled(t, "RecordIntent", mock.Anything, mock.Anything)
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestGrantManually(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	v := &mockVerifier{}
	pub := &recordingPublisher{}
	granter := access.NewGranter(v, repo, pub)

	require.NoError(t, granter.GrantManually(context.Background(), "Reviewer@Example.com"))

	rec, err := repo.GetAccessRecord(context.Background(), "reviewer@example.com")
	require.NoError(t, err)
	assert.True(t, rec.HasAccess)
	assert.Equal(t, models.AccessSourceAdmin, rec.Source)
	v.AssertNotCalled(t, "HasPaid", mock.Anything, mock.Anything)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "admin", pub.events[0].Data["source"])
}

func TestGrantManually_InvalidEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	granter := access.NewGranter(&mockVerifier{}, repo, events.Noop{})

	assert.Error(t, granter.GrantManually(context.Background(), "not-an-email"))
}

func TestRevoke(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	pub := &recordingPublisher{}
	granter := access.NewGranter(&mockVerifier{}, repo, pub)
	ctx := context.Background()
	require.NoError(t, granter.GrantManually(ctx, "buyer@example.com"))

	require.NoError(t, granter.Revoke(ctx, " BUYER@example.com"))

	ok, err := repo.HasAccess(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, pub.events, 2)
	assert.Equal(t, events.AccessRevoked, pub.events[1].Type)
	assert.Equal(t, "buyer@example.com", pub.events[1].Email)
}

func TestRevoke_UnknownEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	pub := &recordingPublisher{}
	granter := access.NewGranter(&mockVerifier{}, repo, pub)

	err := granter.Revoke(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, pub.events)
}
