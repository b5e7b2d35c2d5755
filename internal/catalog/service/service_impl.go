package service

import (
	"context"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultOfferings is the build-time bundle catalog.
var defaultOfferings = []catalogdomain.BundleOffering{
	{ID: catalogdomain.FreeBundleID, Name: "Free Starter", MonthlyPrice: decimal.Zero, YearlyPrice: decimal.Zero, IsFree: true},
	{ID: "creator", Name: "Creator", MonthlyPrice: decimal.NewFromInt(19), YearlyPrice: decimal.NewFromInt(190)},
	{ID: "ecommerce", Name: "E-commerce", MonthlyPrice: decimal.NewFromInt(24), YearlyPrice: decimal.NewFromInt(240)},
	{ID: "social_media", Name: "Social Media", MonthlyPrice: decimal.NewFromInt(29), YearlyPrice: decimal.NewFromInt(290)},
	{ID: "education", Name: "Education", MonthlyPrice: decimal.NewFromInt(22), YearlyPrice: decimal.NewFromInt(220)},
	{ID: "business", Name: "Business", MonthlyPrice: decimal.NewFromInt(39), YearlyPrice: decimal.NewFromInt(390)},
	{ID: "operations", Name: "Operations", MonthlyPrice: decimal.NewFromInt(24), YearlyPrice: decimal.NewFromInt(240)},
	{ID: "enterprise", Name: "Enterprise", MonthlyPrice: decimal.NewFromInt(99), YearlyPrice: decimal.NewFromInt(990)},
}

type Service struct {
	log       *zap.Logger
	offerings []catalogdomain.BundleOffering
	byID      map[string]catalogdomain.BundleOffering
}

func NewService(log *zap.Logger) catalogdomain.Service {
	return newService(log, defaultOfferings)
}

func newService(log *zap.Logger, offerings []catalogdomain.BundleOffering) *Service {
	byID := make(map[string]catalogdomain.BundleOffering, len(offerings))
	for _, offering := range offerings {
		byID[offering.ID] = offering
	}
	return &Service{
		log:       log.Named("catalog.service"),
		offerings: offerings,
		byID:      byID,
	}
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context) []catalogdomain.BundleOffering {
	_ = ctx
	out := make([]catalogdomain.BundleOffering, len(s.offerings))
	copy(out, s.offerings)
	return out
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id string) (catalogdomain.BundleOffering, error) {
	_ = ctx
	offering, ok := s.byID[id]
	if !ok {
		return catalogdomain.BundleOffering{}, catalogdomain.ErrBundleNotFound
	}
	return offering, nil
}
