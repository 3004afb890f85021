package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	bankdomain "github.com/remitra/remitra/internal/bank/domain"
	"github.com/remitra/remitra/internal/clock"
	merchantdomain "github.com/remitra/remitra/internal/merchant/domain"
	"github.com/remitra/remitra/internal/notifier"
	"github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/internal/retry"
	"github.com/remitra/remitra/internal/webhook"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	minProcessingFee = 5
	defaultCurrency  = "INR"
)

var (
	feeRate = decimal.NewFromFloat(0.005)
	gstRate = decimal.NewFromFloat(0.18)
)

// retryPolicy backs the failure path: the first retry lands two
// minutes after the failure, then four, then eight.
var retryPolicy = retry.Policy{BaseDelay: time.Minute, Factor: 2}

type Params struct {
	fx.In

	Log        *zap.Logger
	Repo       domain.Repository
	Merchants  merchantdomain.Repository
	GenID      *snowflake.Node
	Clock      clock.Clock
	Dispatcher *webhook.Dispatcher
	Notifier   *notifier.Notifier
}

type service struct {
	log        *zap.Logger
	repo       domain.Repository
	merchants  merchantdomain.Repository
	genID      *snowflake.Node
	clock      clock.Clock
	dispatcher *webhook.Dispatcher
	notifier   *notifier.Notifier
}

func Provide(p Params) domain.Service {
	return &service{
		log:        p.Log.Named("payout.service"),
		repo:       p.Repo,
		merchants:  p.Merchants,
		genID:      p.GenID,
		clock:      p.Clock,
		dispatcher: p.Dispatcher,
		notifier:   p.Notifier,
	}
}

// ComputeFees derives the fee breakdown for a gross amount: a 0.5%
// processing fee floored at 5, GST at 18% of the fee rounded half up,
// and the remaining net amount.
func ComputeFees(amount int64) (fee, gst, net int64) {
	fee = decimal.NewFromInt(amount).Mul(feeRate).Round(0).IntPart()
	if fee < minProcessingFee {
		fee = minProcessingFee
	}
	gst = decimal.NewFromInt(fee).Mul(gstRate).Round(0).IntPart()
	net = amount - fee - gst
	return fee, gst, net
}

func (s *service) Create(ctx context.Context, req domain.CreatePayoutRequest) (*domain.PayoutRequest, error) {
	merchantID, err := parseID(req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: merchant_id", domain.ErrInvalidRequest)
	}

	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		if err == merchantdomain.ErrNotFound {
			return nil, domain.ErrMerchantInactive
		}
		return nil, err
	}
	if !merchant.IsActive {
		return nil, domain.ErrMerchantInactive
	}

	if err := validateDestination(req); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == 0 {
		priority = domain.DefaultPriority
	}
	maxRetries := req.MaxRetries
	if maxRetries == 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	fee, gst, net := ComputeFees(req.Amount)
	now := s.clock.Now()

	payout := &domain.PayoutRequest{
		ID:              s.genID.Generate(),
		MerchantID:      merchantID,
		Amount:          req.Amount,
		Currency:        currency,
		Method:          req.Method,
		BeneficiaryName: req.BeneficiaryName,
		AccountNumber:   req.AccountNumber,
		IFSCCode:        req.IFSCCode,
		UPIID:           req.UPIID,
		Status:          domain.StatusPending,
		Priority:        priority,
		MaxRetries:      maxRetries,
		ProcessingFee:   fee,
		GSTAmount:       gst,
		NetAmount:       net,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, payout); err != nil {
		return nil, err
	}

	s.log.Info("payout created",
		zap.String("payout_id", payout.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.Int64("amount", payout.Amount),
		zap.String("method", string(payout.Method)),
		zap.Int("priority", payout.Priority),
	)
	return payout, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.PayoutRequest, error) {
	payoutID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return s.repo.GetByID(ctx, payoutID)
}

func (s *service) List(ctx context.Context, req domain.ListPayoutRequest) (domain.ListPayoutResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	payouts, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.ListPayoutResponse{}, err
	}
	return domain.ListPayoutResponse{
		Payouts: payouts,
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
	}, nil
}

// Retry moves a failed payout back to pending for immediate pickup.
// Payouts that already spent their retry budget stay failed.
func (s *service) Retry(ctx context.Context, id string) (*domain.PayoutRequest, error) {
	payoutID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	payout, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.StatusFailed {
		return nil, domain.ErrInvalidStatus
	}
	if payout.RetryCount >= payout.MaxRetries {
		return nil, domain.ErrRetriesExhausted
	}

	ok, err := s.repo.ResetForRetry(ctx, payoutID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStatus
	}
	s.log.Info("payout reset for retry", zap.String("payout_id", id))
	return s.repo.GetByID(ctx, payoutID)
}

func (s *service) Cancel(ctx context.Context, id string) (*domain.PayoutRequest, error) {
	payoutID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	payout, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.StatusPending {
		return nil, domain.ErrInvalidStatus
	}

	ok, err := s.repo.CancelPending(ctx, payoutID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	payout, err = s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	s.log.Info("payout cancelled", zap.String("payout_id", id))
	s.announce(ctx, payout)
	return payout, nil
}

func (s *service) MarkSubmitted(ctx context.Context, payout *domain.PayoutRequest, referenceID string, estimatedCompletion time.Time) error {
	ok, err := s.repo.MarkSubmitted(ctx, payout.ID, referenceID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidStatus
	}
	payout.Status = domain.StatusProcessing
	payout.BankReferenceID = referenceID
	payout.FailureReason = ""

	s.log.Info("payout submitted to bank",
		zap.String("payout_id", payout.ID.String()),
		zap.String("bank_reference_id", referenceID),
		zap.Time("estimated_completion", estimatedCompletion),
	)
	s.announce(ctx, payout)
	return nil
}

func (s *service) HandleSubmissionFailure(ctx context.Context, payout *domain.PayoutRequest, cause string, terminal bool) error {
	next := payout.RetryCount + 1
	if terminal || next > payout.MaxRetries {
		reason := cause
		if !terminal {
			reason = "Max retries exceeded: " + cause
		}
		ok, err := s.repo.MarkFailed(ctx, payout.ID, reason, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidStatus
		}
		payout.Status = domain.StatusFailed
		payout.FailureReason = reason
		payout.NextRetryAt = nil

		s.log.Warn("payout failed",
			zap.String("payout_id", payout.ID.String()),
			zap.String("reason", reason),
			zap.Int("retry_count", payout.RetryCount),
		)
		s.announce(ctx, payout)
		return nil
	}

	now := s.clock.Now()
	nextRetryAt := now.Add(retryPolicy.Delay(next))
	ok, err := s.repo.ScheduleRetry(ctx, payout.ID, cause, nextRetryAt, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidStatus
	}
	payout.Status = domain.StatusPending
	payout.RetryCount = next
	payout.NextRetryAt = &nextRetryAt
	payout.FailureReason = cause

	s.log.Info("payout retry scheduled",
		zap.String("payout_id", payout.ID.String()),
		zap.Int("retry_count", next),
		zap.Time("next_retry_at", nextRetryAt),
		zap.String("cause", cause),
	)
	s.announce(ctx, payout)
	return nil
}

func (s *service) ApplyBankStatus(ctx context.Context, update domain.BankStatusUpdate) error {
	if update.Status != domain.StatusCompleted && update.Status != domain.StatusFailed {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, update.Status)
	}
	payoutID, err := parseID(update.PayoutID)
	if err != nil {
		return domain.ErrInvalidID
	}

	ok, err := s.repo.ApplyTerminalStatus(ctx, payoutID, update.Status,
		update.UTRNumber, update.BankReferenceID, update.FailureReason, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		// Already terminal or never submitted; the update is stale.
		s.log.Warn("bank status update ignored",
			zap.String("payout_id", update.PayoutID),
			zap.String("status", string(update.Status)),
		)
		return domain.ErrInvalidStatus
	}

	payout, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	s.log.Info("bank status applied",
		zap.String("payout_id", update.PayoutID),
		zap.String("status", string(update.Status)),
		zap.String("utr_number", update.UTRNumber),
	)
	s.announce(ctx, payout)
	return nil
}

// announce fans a status change out to the merchant webhook and the
// realtime channel. Neither outcome affects the payout.
func (s *service) announce(ctx context.Context, payout *domain.PayoutRequest) {
	s.dispatcher.Notify(ctx, payout)
	s.notifier.Publish(ctx, payout)
}

func validateDestination(req domain.CreatePayoutRequest) error {
	switch req.Method {
	case bankdomain.MethodBankTransfer:
		if req.AccountNumber == "" || req.IFSCCode == "" {
			return fmt.Errorf("%w: bank_transfer requires account_number and ifsc_code", domain.ErrInvalidRequest)
		}
	case bankdomain.MethodUPI:
		if req.UPIID == "" {
			return fmt.Errorf("%w: upi requires upi_id", domain.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", domain.ErrInvalidRequest, req.Method)
	}
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(n), nil
}
