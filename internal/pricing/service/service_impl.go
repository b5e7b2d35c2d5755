package service

import (
	"context"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Discount tiers are a step function of the number of selected paid
// bundles. The schedule is deliberately discontinuous: it rewards the
// combination, not each bundle.
var (
	discountTwoBundles   = decimal.NewFromFloat(0.20)
	discountThreeBundles = decimal.NewFromFloat(0.30)
	discountFourPlus     = decimal.NewFromFloat(0.40)
)

type Service struct {
	log        *zap.Logger
	catalogsvc catalogdomain.Service
}

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Catalogsvc catalogdomain.Service
}

func NewService(p ServiceParam) pricingdomain.Service {
	return &Service{
		log:        p.Log.Named("pricing.service"),
		catalogsvc: p.Catalogsvc,
	}
}

// Quote implements domain.Service. It is pure with respect to its
// inputs: the same selection, interval and catalog always produce the
// same result, and it never fails.
func (s *Service) Quote(ctx context.Context, req pricingdomain.QuoteRequest) pricingdomain.PricingResult {
	if req.Selection.IsFreeOnly() {
		return pricingdomain.PricingResult{
			BasePrice:       decimal.Zero,
			DiscountRate:    decimal.Zero,
			DiscountedPrice: decimal.Zero,
			Savings:         decimal.Zero,
			IsFree:          true,
		}
	}

	interval := req.Interval
	if interval != catalogdomain.IntervalYearly {
		interval = catalogdomain.IntervalMonthly
	}

	basePrice := decimal.Zero
	paidCount := 0
	for _, id := range req.Selection.IDs() {
		if id == catalogdomain.FreeBundleID {
			continue
		}
		offering, err := s.catalogsvc.Get(ctx, id)
		if err != nil {
			// A selection referencing an unknown SKU usually means the
			// catalog and the client disagree; the id contributes
			// nothing but is worth surfacing.
			s.log.Debug("dropping unknown bundle id from selection", zap.String("bundle_id", id))
			continue
		}
		basePrice = basePrice.Add(offering.PriceFor(interval))
		paidCount++
	}

	rate := discountRate(paidCount)

	// Full precision until here; round once at the boundary.
	discounted := basePrice.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
	savings := basePrice.Sub(discounted).Round(2)

	return pricingdomain.PricingResult{
		BasePrice:       basePrice.Round(2),
		DiscountRate:    rate,
		DiscountedPrice: discounted,
		Savings:         savings,
	}
}

func discountRate(paidCount int) decimal.Decimal {
	switch {
	case paidCount >= 4:
		return discountFourPlus
	case paidCount == 3:
		return discountThreeBundles
	case paidCount == 2:
		return discountTwoBundles
	default:
		return decimal.Zero
	}
}
