package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrEmptySelection   = errors.New("empty_selection")
	ErrInvalidInterval  = errors.New("invalid_billing_interval")
	ErrAttemptInFlight  = errors.New("attempt_in_flight")
	ErrAttemptNotFound  = errors.New("attempt_not_found")
	ErrInvalidAttemptID = errors.New("invalid_attempt_id")
	ErrRateLimited      = errors.New("rate_limited")
)

// Service runs checkout submissions. Checkout returns an error only for
// request-level rejections (bad input, a submission already in flight,
// rate limiting); once an attempt starts, every failure is folded into
// the returned CheckoutResult and never surfaces as a Go error.
//
//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
	GetAttempt(ctx context.Context, id string) (CheckoutAttempt, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attempt *CheckoutAttempt) error
	Update(ctx context.Context, db *gorm.DB, attempt *CheckoutAttempt) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CheckoutAttempt, error)
	CountFailedBySession(ctx context.Context, db *gorm.DB, sessionID string) (int64, error)
}
