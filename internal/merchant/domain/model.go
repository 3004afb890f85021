package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrNotFound = errors.New("merchant not found")

// Merchant holds the back-office view of a merchant account: whether
// payouts may be created for it and where status notifications go.
type Merchant struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	Name          string       `json:"name" gorm:"type:text;not null"`
	IsActive      bool         `json:"is_active" gorm:"not null"`
	WebhookURL    string       `json:"webhook_url,omitempty" gorm:"type:text"`
	WebhookSecret string       `json:"-" gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Merchant) TableName() string { return "merchants" }

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Merchant, error)
}
