package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
)

type repo struct{}

func Provide() checkoutdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, attempt *checkoutdomain.CheckoutAttempt) error {
	now := time.Now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
	return db.WithContext(ctx).Create(attempt).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, attempt *checkoutdomain.CheckoutAttempt) error {
	attempt.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(attempt).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*checkoutdomain.CheckoutAttempt, error) {
	var attempt checkoutdomain.CheckoutAttempt
	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, checkoutdomain.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *repo) CountFailedBySession(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&checkoutdomain.CheckoutAttempt{}).
		Where("session_id = ? AND state = ?", sessionID, checkoutdomain.StateFailed).
		Count(&count).Error
	return count, err
}
