package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
)

type previewPricingRequest struct {
	BundleIDs       []string `json:"bundle_ids" binding:"required"`
	PaymentInterval string   `json:"payment_interval"`
}

func (s *Server) PreviewPricing(c *gin.Context) {
	var req previewPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rawInterval := req.PaymentInterval
	if rawInterval == "" {
		rawInterval = string(catalogdomain.IntervalMonthly)
	}
	interval, ok := catalogdomain.ParseInterval(rawInterval)
	if !ok {
		AbortWithError(c, newValidationError("payment_interval", "invalid_billing_interval", "payment interval must be monthly or yearly"))
		return
	}

	result := s.pricingSvc.Quote(c.Request.Context(), pricingdomain.QuoteRequest{
		Selection: catalogdomain.NewSelection(req.BundleIDs...),
		Interval:  interval,
	})

	s.obsMetrics.RecordPricingQuote(c.Request.Context(), string(interval))

	c.JSON(http.StatusOK, gin.H{"data": result})
}
