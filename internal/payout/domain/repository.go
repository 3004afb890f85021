package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository persists payout requests. All status mutations are
// conditional updates gated on the current status; callers learn from
// the bool whether their transition won.
type Repository interface {
	Insert(ctx context.Context, payout *PayoutRequest) error
	GetByID(ctx context.Context, id snowflake.ID) (*PayoutRequest, error)
	List(ctx context.Context, req ListPayoutRequest) ([]PayoutRequest, int64, error)

	// ClaimPending atomically moves up to limit due pending payouts to
	// processing, ordered by priority desc, created_at asc. Each row is
	// claimed by a single caller even with concurrent scheduler
	// replicas.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]PayoutRequest, error)

	MarkSubmitted(ctx context.Context, id snowflake.ID, referenceID string, now time.Time) (bool, error)
	ScheduleRetry(ctx context.Context, id snowflake.ID, reason string, nextRetryAt, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id snowflake.ID, reason string, now time.Time) (bool, error)
	ApplyTerminalStatus(ctx context.Context, id snowflake.ID, status Status, utr, bankRef, reason string, now time.Time) (bool, error)
	ResetForRetry(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
	CancelPending(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
}
