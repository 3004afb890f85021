package clients

import (
	"context"
	"testing"
	"time"

	"github.com/remitra/remitra/internal/bank/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedClientAccepts(t *testing.T) {
	client := NewSimulatedClient(domain.BankAxis, 0)

	submitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resp, err := client.Submit(context.Background(), domain.SubmissionRequest{
		PayoutID:       "42",
		IdempotencyKey: "abcdef1234567890",
		SubmittedAt:    submitted,
		Fields:         map[string]any{"destination_tail": "3456"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "AXIS-abcdef12", resp.ReferenceID)
	assert.True(t, resp.EstimatedCompletion.Equal(submitted.Add(2*time.Hour)))
}

func TestSimulatedClientRejectsBadBeneficiary(t *testing.T) {
	client := NewSimulatedClient(domain.BankHDFC, 0)

	resp, err := client.Submit(context.Background(), domain.SubmissionRequest{
		PayoutID:       "42",
		IdempotencyKey: "abcdef1234567890",
		Fields:         map[string]any{"destination_tail": "0000"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.NotEmpty(t, resp.Message)
}

func TestSimulatedClientHonorsCancellation(t *testing.T) {
	client := NewSimulatedClient(domain.BankAxis, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Submit(ctx, domain.SubmissionRequest{PayoutID: "42"})
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	axis := NewSimulatedClient(domain.BankAxis, 0)
	registry := NewRegistry(axis, nil)

	got, err := registry.Get(domain.BankAxis)
	require.NoError(t, err)
	assert.Equal(t, domain.BankAxis, got.Code())

	_, err = registry.Get(domain.BankHDFC)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}
