package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EventPayoutStatusUpdated is the only outbound event type.
const EventPayoutStatusUpdated = "payout.status_updated"

// Event is the envelope POSTed to the merchant's webhook endpoint.
type Event struct {
	Event     string    `json:"event"`
	PayoutID  string    `json:"payout_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	UTRNumber string    `json:"utr_number,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliveryRecord is the append-only audit log of delivery outcomes:
// exactly one row per terminal outcome (delivered or exhausted).
type DeliveryRecord struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	PayoutID     snowflake.ID `json:"payout_id" gorm:"not null;index"`
	Payload      string       `json:"payload" gorm:"type:text;not null"`
	Signature    string       `json:"signature,omitempty" gorm:"type:text"`
	ResponseCode int          `json:"response_code"`
	Delivered    bool         `json:"delivered" gorm:"not null"`
	ResponseBody string       `json:"response_body,omitempty" gorm:"type:text"`
	Attempts     int          `json:"attempts" gorm:"not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
}

func (DeliveryRecord) TableName() string { return "webhook_deliveries" }
