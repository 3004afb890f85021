package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/remitra/remitra/internal/merchant/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, is_active, webhook_url, webhook_secret, created_at, updated_at
		 FROM merchants
		 WHERE id = ?`,
		id,
	).Scan(&merchant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if merchant.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &merchant, nil
}
