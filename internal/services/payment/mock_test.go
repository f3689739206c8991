// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package payment_test

import (
	"context"

	"codeberg.org/mathrix/autonomouslab/internal/services/payment"
	"github.com/stretchr/testify/mock"
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
	intent, _ := args.Get(0).(*payment.CreatedIntent)
	return intent, args.Error(1)
}
