// Package domain contains the checkout attempt model and state machine types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
)

// FreePlanSubscriptionID is the sentinel subscription id returned when the
// selection contains only the free bundle and no network calls are made.
const FreePlanSubscriptionID = "free_plan"

// AttemptState is a checkout attempt's position in the state machine.
type AttemptState string

const (
	StateIdle                    AttemptState = "IDLE"
	StateCollectingPaymentMethod AttemptState = "COLLECTING_PAYMENT_METHOD"
	StateCreatingSubscription    AttemptState = "CREATING_SUBSCRIPTION"
	StateAuthenticationRequired  AttemptState = "AUTHENTICATION_REQUIRED"
	StateConfirming              AttemptState = "CONFIRMING"
	StateSucceeded               AttemptState = "SUCCEEDED"
	StateFailed                  AttemptState = "FAILED"
)

// Terminal reports whether the state machine has finished.
func (s AttemptState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// FailureCategory classifies why an attempt failed.
type FailureCategory string

const (
	CategoryCardValidation FailureCategory = "card_validation"
	CategoryAuthentication FailureCategory = "authentication"
	CategoryBackend        FailureCategory = "backend"
	CategoryNetwork        FailureCategory = "network"
)

// CustomerInfo identifies the purchaser.
type CustomerInfo struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// CheckoutRequest is a single user-initiated submission.
type CheckoutRequest struct {
	SessionID string                    `json:"session_id" binding:"required"`
	BundleIDs []string                  `json:"bundle_ids" binding:"required"`
	Interval  string                    `json:"payment_interval"`
	Card      paymentdomain.CardDetails `json:"card"`
	Customer  CustomerInfo              `json:"customer_info"`
	ClientIP  string                    `json:"-"`
}

// CheckoutResult is what the caller receives when the attempt reaches a
// terminal state. Errors never escape the orchestrator as Go errors; they
// are folded into State, FailureCategory and Message.
type CheckoutResult struct {
	AttemptID       string                      `json:"attempt_id"`
	State           AttemptState                `json:"state"`
	SubscriptionID  string                      `json:"subscription_id,omitempty"`
	Status          string                      `json:"status,omitempty"`
	Attempt         int                         `json:"attempt"`
	FailureCategory FailureCategory             `json:"failure_category,omitempty"`
	Message         string                      `json:"message,omitempty"`
	Pricing         pricingdomain.PricingResult `json:"pricing"`
	Superseded      bool                        `json:"superseded,omitempty"`
}

// CheckoutAttempt is the persisted audit record for one submission.
type CheckoutAttempt struct {
	ID              snowflake.ID                `gorm:"primaryKey" json:"id"`
	SessionID       string                      `gorm:"not null;index" json:"session_id"`
	State           AttemptState                `gorm:"type:text;not null" json:"state"`
	BundleIDs       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"bundle_ids"`
	BillingInterval string                      `gorm:"type:text;not null" json:"billing_interval"`
	Amount          decimal.Decimal             `gorm:"type:numeric(12,2)" json:"amount"`
	DiscountRate    decimal.Decimal             `gorm:"type:numeric(4,2)" json:"discount_rate"`
	CustomerEmail   string                      `gorm:"type:text;not null" json:"customer_email"`
	CustomerName    string                      `gorm:"type:text" json:"customer_name"`
	Ordinal         int                         `gorm:"not null;default:1" json:"ordinal"`
	SubscriptionID  *string                     `gorm:"type:text" json:"subscription_id,omitempty"`
	FailureCategory *FailureCategory            `gorm:"type:text" json:"failure_category,omitempty"`
	FailureMessage  *string                     `gorm:"type:text" json:"failure_message,omitempty"`
	CreatedAt       time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CheckoutAttempt) TableName() string { return "checkout_attempts" }
