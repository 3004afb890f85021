package domain

import (
	"context"
	"time"

	"github.com/remitra/remitra/internal/codec"
)

// SubmissionRequest is the wire payload handed to a partner client.
// Fields named in the profile's EncryptedFields are stripped from
// Fields and carried inside Envelope before the client is invoked.
type SubmissionRequest struct {
	PayoutID        string          `json:"payout_id"`
	MerchantID      string          `json:"merchant_id"`
	Method          Method          `json:"method"`
	Currency        string          `json:"currency"`
	Fields          map[string]any  `json:"fields,omitempty"`
	Envelope        *codec.Envelope `json:"envelope,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	IdempotencyKey  string          `json:"idempotency_key"`
	SignatureMethod string          `json:"signature_method,omitempty"`
}

// SubmissionResponse is the partner's acknowledgement of a payout.
type SubmissionResponse struct {
	Accepted            bool
	ReferenceID         string
	Message             string
	EstimatedCompletion time.Time
}

// BankClient abstracts one partner integration. Real clients speak the
// partner's network protocol; the in-tree clients simulate it with a
// latency delay and a deterministic acceptance predicate.
type BankClient interface {
	Code() BankCode
	Submit(ctx context.Context, req SubmissionRequest) (SubmissionResponse, error)
}
