// Package router selects a partner bank for a payout and executes the
// submission, applying field encryption when the partner requires it.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remitra/remitra/internal/bank"
	"github.com/remitra/remitra/internal/bank/clients"
	bankdomain "github.com/remitra/remitra/internal/bank/domain"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/codec"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Selection thresholds. Routing is a pure function of amount.
const (
	highLimitThreshold = 500_000
	midTierThreshold   = 100_000
)

// SubmissionResult is the structured outcome of one submission attempt.
// Terminal marks domain failures that must never be retried.
type SubmissionResult struct {
	Success             bool
	Message             string
	ReferenceID         string
	EstimatedCompletion time.Time
	Terminal            bool
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Profiles *bank.ProfileRegistry
	Clients  *clients.Registry
	Codec    *codec.Codec
	Clock    clock.Clock
}

type Router struct {
	log      *zap.Logger
	profiles *bank.ProfileRegistry
	clients  *clients.Registry
	codec    *codec.Codec
	clock    clock.Clock
}

func New(p Params) *Router {
	return &Router{
		log:      p.Log.Named("bank.router"),
		profiles: p.Profiles,
		clients:  p.Clients,
		codec:    p.Codec,
		clock:    p.Clock,
	}
}

// SelectBank picks a partner purely from the amount: the high-limit
// partner above 500k, the mid-tier partner above 100k, otherwise the
// lowest-cost partner.
func SelectBank(amount int64) bankdomain.BankCode {
	switch {
	case amount >= highLimitThreshold:
		return bankdomain.BankHDFC
	case amount >= midTierThreshold:
		return bankdomain.BankICICI
	default:
		return bankdomain.BankAxis
	}
}

// Submit never returns an error: every internal failure is converted to
// a structured failure result so the caller can decide between retry
// and terminal paths.
func (r *Router) Submit(ctx context.Context, payout *payoutdomain.PayoutRequest, code bankdomain.BankCode) SubmissionResult {
	profile, err := r.profiles.Get(code)
	if err != nil {
		return failure(fmt.Sprintf("bank %s not configured", code), false)
	}

	if !profile.Supports(payout.Method) {
		return failure(fmt.Sprintf("%v: %s via %s", bankdomain.ErrMethodNotSupported, payout.Method, code), true)
	}
	if payout.Amount < profile.MinAmount || payout.Amount > profile.MaxAmount {
		return failure(fmt.Sprintf("%v: %d outside %s limits [%d, %d]", bankdomain.ErrAmountOutOfRange, payout.Amount, code, profile.MinAmount, profile.MaxAmount), true)
	}

	req, err := r.buildRequest(payout, profile)
	if err != nil {
		if errors.Is(err, codec.ErrMissingKey) {
			// Fail closed; key material is a deployment problem, not a
			// payout problem, so the retry path applies.
			return failure(fmt.Sprintf("encryption unavailable for %s", code), false)
		}
		return failure(err.Error(), false)
	}

	r.logOutbound(payout, profile, req)

	client, err := r.clients.Get(code)
	if err != nil {
		return failure(fmt.Sprintf("no client for bank %s", code), false)
	}

	resp, err := client.Submit(ctx, req)
	if err != nil {
		return failure(fmt.Sprintf("bank %s submission error: %v", code, err), false)
	}
	if !resp.Accepted {
		return failure(fmt.Sprintf("bank %s rejected payout: %s", code, resp.Message), false)
	}

	return SubmissionResult{
		Success:             true,
		Message:             resp.Message,
		ReferenceID:         resp.ReferenceID,
		EstimatedCompletion: resp.EstimatedCompletion,
	}
}

func (r *Router) buildRequest(payout *payoutdomain.PayoutRequest, profile bankdomain.BankProfile) (bankdomain.SubmissionRequest, error) {
	now := r.clock.Now()
	req := bankdomain.SubmissionRequest{
		PayoutID:        payout.ID.String(),
		MerchantID:      payout.MerchantID.String(),
		Method:          payout.Method,
		Currency:        payout.Currency,
		SubmittedAt:     now,
		IdempotencyKey:  uuid.NewString(),
		SignatureMethod: profile.SignatureMethod,
		Fields: map[string]any{
			"destination_tail": payout.DestinationTail(),
		},
	}

	if profile.EncryptionRequired {
		env, err := r.codec.EncryptPayoutData(
			string(profile.Code),
			payout.Amount,
			payout.AccountNumber,
			payout.IFSCCode,
			payout.BeneficiaryName,
			now,
		)
		if err != nil {
			return bankdomain.SubmissionRequest{}, err
		}
		req.Envelope = &env
		// Plaintext stays out of the payload for every encrypted field.
		for field, value := range plainFields(payout) {
			if !profile.EncryptsField(field) {
				req.Fields[field] = value
			}
		}
		return req, nil
	}

	for field, value := range plainFields(payout) {
		req.Fields[field] = value
	}
	return req, nil
}

func plainFields(payout *payoutdomain.PayoutRequest) map[string]any {
	fields := map[string]any{
		"amount":           payout.Amount,
		"beneficiary_name": payout.BeneficiaryName,
	}
	if payout.Method == bankdomain.MethodUPI {
		fields["upi_id"] = payout.UPIID
	} else {
		fields["account_number"] = payout.AccountNumber
		fields["ifsc_code"] = payout.IFSCCode
	}
	return fields
}

func (r *Router) logOutbound(payout *payoutdomain.PayoutRequest, profile bankdomain.BankProfile, req bankdomain.SubmissionRequest) {
	r.log.Info("submitting payout to partner",
		zap.String("payout_id", payout.ID.String()),
		zap.String("bank_code", string(profile.Code)),
		zap.String("method", string(payout.Method)),
		zap.Int64("amount", payout.Amount),
		zap.String("destination_tail", payout.DestinationTail()),
		zap.Bool("encrypted", req.Envelope != nil),
	)
}

func failure(message string, terminal bool) SubmissionResult {
	return SubmissionResult{Success: false, Message: message, Terminal: terminal}
}
