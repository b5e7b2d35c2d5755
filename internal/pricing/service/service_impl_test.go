package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	catalogservice "github.com/mewayz/billing/internal/catalog/service"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
)

func newQuoter(t *testing.T) pricingdomain.Service {
	t.Helper()
	return &Service{
		log:        zap.NewNop(),
		catalogsvc: catalogservice.NewService(zap.NewNop()),
	}
}

func quote(t *testing.T, svc pricingdomain.Service, interval catalogdomain.BillingInterval, ids ...string) pricingdomain.PricingResult {
	t.Helper()
	return svc.Quote(context.Background(), pricingdomain.QuoteRequest{
		Selection: catalogdomain.NewSelection(ids...),
		Interval:  interval,
	})
}

func assertDecimal(t *testing.T, name, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got.String())
	}
}

func TestQuoteTwoBundlesMonthly(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce")

	assertDecimal(t, "base price", "43.00", result.BasePrice)
	assertDecimal(t, "discount rate", "0.20", result.DiscountRate)
	assertDecimal(t, "discounted price", "34.40", result.DiscountedPrice)
	assertDecimal(t, "savings", "8.60", result.Savings)
	if result.IsFree {
		t.Fatal("expected a paid quote")
	}
}

func TestQuoteThreeBundlesMonthly(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce", "social_media")

	assertDecimal(t, "base price", "72.00", result.BasePrice)
	assertDecimal(t, "discount rate", "0.30", result.DiscountRate)
	assertDecimal(t, "discounted price", "50.40", result.DiscountedPrice)
	assertDecimal(t, "savings", "21.60", result.Savings)
}

func TestQuoteYearlyUsesYearlyPrices(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalYearly, "creator", "ecommerce")

	assertDecimal(t, "base price", "430.00", result.BasePrice)
	assertDecimal(t, "discounted price", "344.00", result.DiscountedPrice)
}

func TestDiscountSchedule(t *testing.T) {
	svc := newQuoter(t)

	cases := []struct {
		ids  []string
		rate string
	}{
		{[]string{"creator"}, "0"},
		{[]string{"creator", "ecommerce"}, "0.20"},
		{[]string{"creator", "ecommerce", "social_media"}, "0.30"},
		{[]string{"creator", "ecommerce", "social_media", "education"}, "0.40"},
		{[]string{"creator", "ecommerce", "social_media", "education", "business"}, "0.40"},
	}

	prev := decimal.NewFromInt(-1)
	for _, tc := range cases {
		result := quote(t, svc, catalogdomain.IntervalMonthly, tc.ids...)
		assertDecimal(t, "discount rate", tc.rate, result.DiscountRate)
		if result.DiscountRate.LessThan(prev) {
			t.Fatalf("discount rate not monotonic: %s after %s", result.DiscountRate, prev)
		}
		prev = result.DiscountRate
	}
}

func TestQuoteInvariants(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce", "social_media", "enterprise")

	one := decimal.NewFromInt(1)
	wantDiscounted := result.BasePrice.Mul(one.Sub(result.DiscountRate)).Round(2)
	if !result.DiscountedPrice.Equal(wantDiscounted) {
		t.Fatalf("discounted price invariant broken: %s vs %s", result.DiscountedPrice, wantDiscounted)
	}
	wantSavings := result.BasePrice.Sub(result.DiscountedPrice).Round(2)
	if !result.Savings.Equal(wantSavings) {
		t.Fatalf("savings invariant broken: %s vs %s", result.Savings, wantSavings)
	}
}

func TestQuoteRepeatable(t *testing.T) {
	svc := newQuoter(t)

	first := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce", "social_media")
	second := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce", "social_media")

	if !first.BasePrice.Equal(second.BasePrice) ||
		!first.DiscountRate.Equal(second.DiscountRate) ||
		!first.DiscountedPrice.Equal(second.DiscountedPrice) ||
		!first.Savings.Equal(second.Savings) ||
		first.IsFree != second.IsFree {
		t.Fatalf("identical inputs produced different quotes: %+v vs %+v", first, second)
	}
}

func TestQuoteUnknownBundleIgnored(t *testing.T) {
	svc := newQuoter(t)

	with := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce", "nope")
	without := quote(t, svc, catalogdomain.IntervalMonthly, "creator", "ecommerce")

	if !with.BasePrice.Equal(without.BasePrice) || !with.DiscountRate.Equal(without.DiscountRate) {
		t.Fatalf("unknown id changed the quote: %+v vs %+v", with, without)
	}
}

func TestQuoteEmptySelection(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalMonthly)

	assertDecimal(t, "base price", "0", result.BasePrice)
	assertDecimal(t, "discounted price", "0", result.DiscountedPrice)
	if result.IsFree {
		t.Fatal("empty selection is not the free tier")
	}
}

func TestQuoteFreeOnlySelection(t *testing.T) {
	svc := newQuoter(t)

	result := quote(t, svc, catalogdomain.IntervalMonthly, catalogdomain.FreeBundleID)

	if !result.IsFree {
		t.Fatal("expected free quote")
	}
	assertDecimal(t, "base price", "0", result.BasePrice)
	assertDecimal(t, "discount rate", "0", result.DiscountRate)
	assertDecimal(t, "discounted price", "0", result.DiscountedPrice)
	assertDecimal(t, "savings", "0", result.Savings)
}
