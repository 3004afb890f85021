package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/pkg/db"
	"gorm.io/gorm"
)

const payoutColumns = `id, merchant_id, amount, currency, method, beneficiary_name,
	account_number, ifsc_code, upi_id, status, priority, retry_count, max_retries,
	next_retry_at, processing_fee, gst_amount, net_amount, bank_reference_id,
	utr_number, failure_reason, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, payout *domain.PayoutRequest) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO payout_requests (`+payoutColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payout.ID,
		payout.MerchantID,
		payout.Amount,
		payout.Currency,
		payout.Method,
		payout.BeneficiaryName,
		payout.AccountNumber,
		payout.IFSCCode,
		payout.UPIID,
		payout.Status,
		payout.Priority,
		payout.RetryCount,
		payout.MaxRetries,
		payout.NextRetryAt,
		payout.ProcessingFee,
		payout.GSTAmount,
		payout.NetAmount,
		payout.BankReferenceID,
		payout.UTRNumber,
		payout.FailureReason,
		payout.CreatedAt,
		payout.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.PayoutRequest, error) {
	var payout domain.PayoutRequest
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+` FROM payout_requests WHERE id = ?`,
		id,
	).Scan(&payout).Error
	if err != nil {
		return nil, err
	}
	if payout.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &payout, nil
}

func (r *repository) List(ctx context.Context, req domain.ListPayoutRequest) ([]domain.PayoutRequest, int64, error) {
	merchantID, err := strconv.ParseInt(req.MerchantID, 10, 64)
	if err != nil {
		return nil, 0, domain.ErrInvalidID
	}
	where := `merchant_id = ?`
	args := []any{merchantID}
	if req.Status != "" {
		where += ` AND status = ?`
		args = append(args, req.Status)
	}
	if req.Method != "" {
		where += ` AND method = ?`
		args = append(args, req.Method)
	}

	var total int64
	if err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payout_requests WHERE `+where, args...,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (req.Page - 1) * req.Limit
	var payouts []domain.PayoutRequest
	err = r.db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+`
		 FROM payout_requests
		 WHERE `+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		append(args, req.Limit, offset)...,
	).Scan(&payouts).Error
	if err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

// ClaimPending selects due pending payouts in dispatch order, then
// claims each through a conditional update so concurrent scheduler
// replicas never double-submit a payout. Rows lost to another replica
// are silently dropped from the batch.
func (r *repository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]domain.PayoutRequest, error) {
	var candidates []domain.PayoutRequest
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+`
		 FROM payout_requests
		 WHERE status = ?
		   AND (next_retry_at IS NULL OR next_retry_at <= ?)
		 ORDER BY priority DESC, created_at ASC
		 LIMIT ?`,
		domain.StatusPending,
		now,
		limit,
	).Scan(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.PayoutRequest, 0, len(candidates))
	for _, candidate := range candidates {
		result := r.db.WithContext(ctx).Exec(
			`UPDATE payout_requests
			 SET status = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.StatusProcessing,
			now,
			candidate.ID,
			domain.StatusPending,
		)
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		candidate.Status = domain.StatusProcessing
		candidate.UpdatedAt = now
		claimed = append(claimed, candidate)
	}
	return claimed, nil
}

func (r *repository) MarkSubmitted(ctx context.Context, id snowflake.ID, referenceID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET bank_reference_id = ?, failure_reason = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		referenceID,
		now,
		id,
		domain.StatusProcessing,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ScheduleRetry(ctx context.Context, id snowflake.ID, reason string, nextRetryAt, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET status = ?, retry_count = retry_count + 1, next_retry_at = ?,
		     failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND retry_count < max_retries`,
		domain.StatusPending,
		nextRetryAt,
		reason,
		now,
		id,
		domain.StatusProcessing,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkFailed(ctx context.Context, id snowflake.ID, reason string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET status = ?, failure_reason = ?, next_retry_at = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.StatusFailed,
		reason,
		now,
		id,
		domain.StatusProcessing,
		domain.StatusPending,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ApplyTerminalStatus(ctx context.Context, id snowflake.ID, status domain.Status, utr, bankRef, reason string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET status = ?,
		     utr_number = CASE WHEN ? = '' THEN utr_number ELSE ? END,
		     bank_reference_id = CASE WHEN ? = '' THEN bank_reference_id ELSE ? END,
		     failure_reason = CASE WHEN ? = '' THEN failure_reason ELSE ? END,
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		utr, utr,
		bankRef, bankRef,
		reason, reason,
		now,
		id,
		domain.StatusProcessing,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ResetForRetry(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET status = ?, next_retry_at = NULL, failure_reason = '', updated_at = ?
		 WHERE id = ? AND status = ? AND retry_count < max_retries`,
		domain.StatusPending,
		now,
		id,
		domain.StatusFailed,
	)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) CancelPending(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payout_requests
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCancelled,
		now,
		id,
		domain.StatusPending,
	)
	return result.RowsAffected > 0, result.Error
}
