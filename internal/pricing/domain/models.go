// Package domain contains the multi-bundle pricing models.
package domain

import (
	"context"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

// QuoteRequest asks for the price of a bundle selection over one
// billing interval.
type QuoteRequest struct {
	Selection catalogdomain.Selection
	Interval  catalogdomain.BillingInterval
}

// PricingResult is a derived value, recomputed on every selection
// change and never persisted.
//
// Invariants: DiscountedPrice = round2(BasePrice * (1 - DiscountRate))
// and Savings = round2(BasePrice - DiscountedPrice). When IsFree is set
// every numeric field is zero.
type PricingResult struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountRate    decimal.Decimal `json:"discount_rate"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Savings         decimal.Decimal `json:"savings"`
	IsFree          bool            `json:"is_free"`
}

// Service computes pricing results. Quote has no failure mode: unknown
// bundle ids contribute nothing and an empty selection prices to zero.
type Service interface {
	Quote(ctx context.Context, req QuoteRequest) PricingResult
}
