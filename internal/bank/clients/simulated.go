package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/remitra/remitra/internal/bank/domain"
)

// SimulatedClient stands in for a partner bank integration. It waits a
// fixed latency, then accepts or rejects by a deterministic predicate:
// a destination tail of "0000" is rejected as an invalid beneficiary.
// Real clients implement the same interface per partner protocol.
type SimulatedClient struct {
	code       domain.BankCode
	latency    time.Duration
	settleTime time.Duration
}

func NewSimulatedClient(code domain.BankCode, latency time.Duration) *SimulatedClient {
	return &SimulatedClient{
		code:       code,
		latency:    latency,
		settleTime: 2 * time.Hour,
	}
}

func (c *SimulatedClient) Code() domain.BankCode { return c.code }

func (c *SimulatedClient) Submit(ctx context.Context, req domain.SubmissionRequest) (domain.SubmissionResponse, error) {
	if c.latency > 0 {
		timer := time.NewTimer(c.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.SubmissionResponse{}, ctx.Err()
		case <-timer.C:
		}
	}

	// The destination tail stays outside the encrypted envelope, so the
	// predicate holds whether or not the profile requires encryption.
	if tail, _ := req.Fields["destination_tail"].(string); strings.HasSuffix(tail, "0000") {
		return domain.SubmissionResponse{
			Accepted: false,
			Message:  "beneficiary account rejected by partner",
		}, nil
	}

	key := req.IdempotencyKey
	if len(key) > 8 {
		key = key[:8]
	}
	return domain.SubmissionResponse{
		Accepted:            true,
		ReferenceID:         fmt.Sprintf("%s-%s", strings.ToUpper(string(c.code)), key),
		Message:             "accepted for processing",
		EstimatedCompletion: req.SubmittedAt.Add(c.settleTime),
	}, nil
}
