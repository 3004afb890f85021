package domain

import (
	"context"
	"time"
)

// Service owns payout lifecycle mutations. Every status change also
// dispatches a merchant notification, independently of the payout's
// own outcome.
type Service interface {
	Create(ctx context.Context, req CreatePayoutRequest) (*PayoutRequest, error)
	GetByID(ctx context.Context, id string) (*PayoutRequest, error)
	List(ctx context.Context, req ListPayoutRequest) (ListPayoutResponse, error)
	Retry(ctx context.Context, id string) (*PayoutRequest, error)
	Cancel(ctx context.Context, id string) (*PayoutRequest, error)

	// MarkSubmitted records a successful partner submission
	// (pending-claim -> processing with a bank reference).
	MarkSubmitted(ctx context.Context, payout *PayoutRequest, referenceID string, estimatedCompletion time.Time) error

	// HandleSubmissionFailure applies the retry policy: schedule a
	// backoff retry, or fail terminally when retries are exhausted or
	// the failure is a domain error.
	HandleSubmissionFailure(ctx context.Context, payout *PayoutRequest, cause string, terminal bool) error

	// ApplyBankStatus applies a terminal status reported by an inbound
	// partner webhook.
	ApplyBankStatus(ctx context.Context, update BankStatusUpdate) error
}
