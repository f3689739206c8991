// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"codeberg.org/mathrix/autonomouslab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func succeeded(id, email string) payment.Intent {
	return payment.Intent{
		ID:       id,
		Status:   models.PaymentStatusSucceeded,
		Metadata: map[string]string{"email": email},
		Amount:   1999,
		Currency: "gbp",
	}
}

func TestIntent_MatchesEmail(t *testing.T) {
	tests := []struct {
		name     string
		intent   payment.Intent
		expected bool
	}{
		{"receipt email", payment.Intent{Status: "succeeded", ReceiptEmail: "Buyer@Example.com"}, true},
		{"metadata email", payment.Intent{Status: "succeeded", Metadata: map[string]string{"email": "buyer@example.com "}}, true},
		{"not succeeded", payment.Intent{Status: "processing", ReceiptEmail: "buyer@example.com"}, false},
		{"other email", payment.Intent{Status: "succeeded", ReceiptEmail: "other@example.com"}, false},
		{"no email", payment.Intent{Status: "succeeded"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.intent.MatchesEmail("buyer@example.com"))
		})
	}
}

func TestHasPaid_LedgerHitSkipsProvider(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.RecordPayment(ctx, &models.Payment{
		ProviderID: "pi_1", Email: "buyer@example.com", Amount: 1999, Currency: "gbp",
		Status: models.PaymentStatusSucceeded,
	}))

	provider := &mockProvider{}
	v := payment.NewVerifier(provider, repo)

	ok, err := v.HasPaid(ctx, "BUYER@example.com")

	require.NoError(t, err)
	assert.True(t, ok)
	provider.AssertNotCalled(t, "ListIntents", mock.Anything, mock.Anything, mock.Anything)
}

func TestHasPaid_ScanMatchRecordsLedger(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	provider := &mockProvider{}
	provider.On("ListIntents", mock.Anything, "", int64(100)).Return(&payment.Page{
		Intents: []payment.Intent{succeeded("pi_a", "someone@example.com"), {ID: "pi_b", Status: "canceled"}},
		HasMore: true,
	}, nil).Once()
	provider.On("ListIntents", mock.Anything, "pi_b", int64(100)).Return(&payment.Page{
		Intents: []payment.Intent{succeeded("pi_c", "buyer@example.com")},
		HasMore: true,
	}, nil).Once()

	v := payment.NewVerifier(provider, repo)

	ok, err := v.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	provider.AssertExpectations(t)

	recorded, err := repo.HasSucceededPayment(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, recorded)

	// Second check is answered by the ledger.
	ok, err = v.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	provider.AssertNumberOfCalls(t, "ListIntents", 2)
}

func TestHasPaid_ReceiptEmailMatchRecordsMatchedAddress(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	intent := succeeded("pi_gift", "gift@example.com")
	intent.ReceiptEmail = "Buyer@Example.com"

	provider := &mockProvider{}
	provider.On("ListIntents", mock.Anything, "", int64(100)).Return(&payment.Page{
		Intents: []payment.Intent{intent},
	}, nil).Once()

	v := payment.NewVerifier(provider, repo)

	ok, err := v.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	recorded, err := repo.HasSucceededPayment(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, recorded)

	ok, err = v.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	provider.AssertNumberOfCalls(t, "ListIntents", 1)
}

func TestHasPaid_StopsWhenNoMorePages(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	provider := &mockProvider{}
	provider.On("ListIntents", mock.Anything, "", int64(100)).Return(&payment.Page{
		Intents: []payment.Intent{succeeded("pi_a", "someone@example.com")},
		HasMore: false,
	}, nil).Once()

	v := payment.NewVerifier(provider, repo)

	ok, err := v.HasPaid(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	assert.False(t, ok)
	provider.AssertNumberOfCalls(t, "ListIntents", 1)
}

func TestHasPaid_ScanIsBounded(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	provider := &mockProvider{}
	for i := range 5 {
		after := ""
		if i > 0 {
			after = fmt.Sprintf("pi_%d", i-1)
		}
		provider.On("ListIntents", mock.Anything, after, int64(1)).Return(&payment.Page{
			Intents: []payment.Intent{succeeded(fmt.Sprintf("pi_%d", i), "someone@example.com")},
			HasMore: true,
		}, nil).Maybe()
	}

	v := payment.NewVerifier(provider, repo).WithScanBounds(3, 1)

	ok, err := v.HasPaid(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	assert.False(t, ok)
	provider.AssertNumberOfCalls(t, "ListIntents", 3)
}

func TestHasPaid_ProviderError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	provider := &mockProvider{}
	provider.On("ListIntents", mock.Anything, "", int64(100)).Return(nil, errors.New("stripe down"))

	v := payment.NewVerifier(provider, repo)

	_, err := v.HasPaid(context.Background(), "buyer@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stripe down")
}

func TestHasPaid_NoProvider(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	v := payment.NewVerifier(nil, repo)

	_, err := v.HasPaid(context.Background(), "buyer@example.com")

	assert.ErrorIs(t, err, payment.ErrNotConfigured)
}

func TestRecordIntent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	v := payment.NewVerifier(nil, repo)

	intent := succeeded("pi_x", "Buyer@Example.com")
	require.NoError(t, v.RecordIntent(ctx, &intent))

	ok, err := v.HasPaid(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
