// Package domain contains the bundle catalog models.
package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FreeBundleID is the SKU of the free starter tier.
const FreeBundleID = "free_starter"

// BundleOffering is a static catalog entry. Offerings are defined at
// build time and never mutated at runtime.
type BundleOffering struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	IsFree       bool            `json:"is_free"`
}

// PriceFor returns the price for the given billing interval.
func (b BundleOffering) PriceFor(interval BillingInterval) decimal.Decimal {
	if interval == IntervalYearly {
		return b.YearlyPrice
	}
	return b.MonthlyPrice
}

// BillingInterval selects which price field of an offering applies.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// ParseInterval normalizes a raw interval string.
func ParseInterval(raw string) (BillingInterval, bool) {
	switch BillingInterval(strings.ToLower(strings.TrimSpace(raw))) {
	case IntervalMonthly:
		return IntervalMonthly, true
	case IntervalYearly:
		return IntervalYearly, true
	default:
		return "", false
	}
}

// Selection is the set of bundle ids chosen for one checkout session.
// The free tier is exclusive: adding it clears every paid bundle, and
// adding a paid bundle removes the free tier.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection builds a selection by toggling each id in, applying the
// free-tier exclusivity rule in order.
func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{})}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id, enforcing free-tier exclusivity.
func (s *Selection) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if id == FreeBundleID {
		s.ids = map[string]struct{}{FreeBundleID: {}}
		return
	}
	delete(s.ids, FreeBundleID)
	s.ids[id] = struct{}{}
}

// Remove deletes id from the selection.
func (s *Selection) Remove(id string) {
	delete(s.ids, strings.TrimSpace(id))
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	id = strings.TrimSpace(id)
	if s.Has(id) {
		s.Remove(id)
		return
	}
	s.Add(id)
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Size returns the number of selected ids.
func (s Selection) Size() int {
	return len(s.ids)
}

// IsFreeOnly reports whether the selection is exactly the free tier.
func (s Selection) IsFreeOnly() bool {
	return len(s.ids) == 1 && s.Has(FreeBundleID)
}

// IDs returns the selected ids in stable order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
