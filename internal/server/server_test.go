package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogservice "github.com/mewayz/billing/internal/catalog/service"
	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	pricingservice "github.com/mewayz/billing/internal/pricing/service"
)

type checkoutStub struct {
	result checkoutdomain.CheckoutResult
	err    error
}

func (s *checkoutStub) Checkout(ctx context.Context, req checkoutdomain.CheckoutRequest) (checkoutdomain.CheckoutResult, error) {
	if s.err != nil {
		return checkoutdomain.CheckoutResult{}, s.err
	}
	return s.result, nil
}

func (s *checkoutStub) GetAttempt(ctx context.Context, id string) (checkoutdomain.CheckoutAttempt, error) {
	if s.err != nil {
		return checkoutdomain.CheckoutAttempt{}, s.err
	}
	return checkoutdomain.CheckoutAttempt{}, checkoutdomain.ErrAttemptNotFound
}

func newTestServer(t *testing.T, checkoutSvc checkoutdomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	cat := catalogservice.NewService(zap.NewNop())
	svc := &Server{
		engine:     engine,
		catalogSvc: cat,
		pricingSvc: pricingservice.NewService(pricingservice.ServiceParam{
			Log:        zap.NewNop(),
			Catalogsvc: cat,
		}),
		checkoutSvc: checkoutSvc,
	}
	svc.registerAPIRoutes()
	return svc
}

func TestListBundles(t *testing.T) {
	srv := newTestServer(t, &checkoutStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/bundles", nil)
	srv.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) == 0 {
		t.Fatal("expected a non-empty catalog")
	}
}

func TestPreviewPricing(t *testing.T) {
	srv := newTestServer(t, &checkoutStub{})

	payload := `{"bundle_ids":["creator","ecommerce"],"payment_interval":"monthly"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/preview", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data struct {
			BasePrice       string `json:"base_price"`
			DiscountRate    string `json:"discount_rate"`
			DiscountedPrice string `json:"discounted_price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.BasePrice != "43" {
		t.Fatalf("expected base price 43, got %q", body.Data.BasePrice)
	}
	if body.Data.DiscountedPrice != "34.4" {
		t.Fatalf("expected discounted price 34.4, got %q", body.Data.DiscountedPrice)
	}
}

func TestPreviewPricingInvalidInterval(t *testing.T) {
	srv := newTestServer(t, &checkoutStub{})

	payload := `{"bundle_ids":["creator"],"payment_interval":"weekly"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/pricing/preview", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCheckoutConflictStatus(t *testing.T) {
	srv := newTestServer(t, &checkoutStub{err: checkoutdomain.ErrAttemptInFlight})

	payload := `{"session_id":"s1","bundle_ids":["creator"],"payment_interval":"monthly","customer_info":{"email":"a@b.co","name":"A"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.engine.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{checkoutdomain.ErrEmptySelection, http.StatusBadRequest},
		{checkoutdomain.ErrInvalidInterval, http.StatusBadRequest},
		{checkoutdomain.ErrInvalidAttemptID, http.StatusBadRequest},
		{checkoutdomain.ErrAttemptInFlight, http.StatusConflict},
		{checkoutdomain.ErrRateLimited, http.StatusTooManyRequests},
		{checkoutdomain.ErrAttemptNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		status, _ := mapError(tc.err)
		if status != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
	}
}
