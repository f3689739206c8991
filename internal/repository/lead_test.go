// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/mathrix/autonomouslab/internal/repository"
	"codeberg.org/mathrix/autonomouslab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertLead(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	lead, created, err := repo.UpsertLead(ctx, "Reader@Example.com")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "reader@example.com", lead.Email)
	assert.NotZero(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())
}

func TestUpsertLead_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first, _, err := repo.UpsertLead(ctx, "reader@example.com")
	require.NoError(t, err)

	second, created, err := repo.UpsertLead(ctx, " READER@example.com ")
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetLeadByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetLeadByEmail(context.Background(), "missing@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
