package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogservice "github.com/mewayz/billing/internal/catalog/service"
	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	checkoutrepository "github.com/mewayz/billing/internal/checkout/repository"
	"github.com/mewayz/billing/internal/clock"
	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	pricingservice "github.com/mewayz/billing/internal/pricing/service"
	"github.com/mewayz/billing/internal/subscriptionapi"
	"github.com/mewayz/billing/internal/workspace"
)

type gatewayStub struct {
	mu           sync.Mutex
	createCalls  int
	confirmCalls int
	createErr    error
	confirmErr   error
	methodID     string
}

func (g *gatewayStub) CreatePaymentMethod(ctx context.Context, card paymentdomain.CardDetails, billing paymentdomain.BillingDetails) (paymentdomain.PaymentMethod, error) {
	g.mu.Lock()
	g.createCalls++
	g.mu.Unlock()
	if g.createErr != nil {
		return paymentdomain.PaymentMethod{}, g.createErr
	}
	id := g.methodID
	if id == "" {
		id = "pm_test"
	}
	return paymentdomain.PaymentMethod{ID: id}, nil
}

func (g *gatewayStub) ConfirmPayment(ctx context.Context, clientSecret string) error {
	g.mu.Lock()
	g.confirmCalls++
	g.mu.Unlock()
	return g.confirmErr
}

func (g *gatewayStub) calls() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.confirmCalls
}

type backendStub struct {
	mu       sync.Mutex
	calls    int
	lastReq  subscriptionapi.CreateSubscriptionRequest
	response *subscriptionapi.CreateSubscriptionResponse
	err      error
}

func (b *backendStub) CreateSubscription(ctx context.Context, req subscriptionapi.CreateSubscriptionRequest) (*subscriptionapi.CreateSubscriptionResponse, error) {
	b.mu.Lock()
	b.calls++
	b.lastReq = req
	b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	if b.response != nil {
		return b.response, nil
	}
	return &subscriptionapi.CreateSubscriptionResponse{SubscriptionID: "sub_test"}, nil
}

type workspaceStub struct {
	mu      sync.Mutex
	calls   int
	lastReq workspace.CreateWorkspaceRequest
	err     error
}

func (w *workspaceStub) CreateWorkspace(ctx context.Context, req workspace.CreateWorkspaceRequest) error {
	w.mu.Lock()
	w.calls++
	w.lastReq = req
	w.mu.Unlock()
	return w.err
}

type fixture struct {
	svc       checkoutdomain.Service
	db        *gorm.DB
	gateway   *gatewayStub
	backend   *backendStub
	workspace *workspaceStub
}

func setupCheckout(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&checkoutdomain.CheckoutAttempt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gateway := &gatewayStub{}
	backend := &backendStub{}
	ws := &workspaceStub{}

	cat := catalogservice.NewService(zap.NewNop())
	pricing := pricingservice.NewService(pricingservice.ServiceParam{
		Log:        zap.NewNop(),
		Catalogsvc: cat,
	})

	svc := &Service{
		log:         zap.NewNop(),
		db:          db,
		genID:       mustNode(t),
		clock:       clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		repo:        checkoutrepository.Provide(),
		pricing:     pricing,
		gateway:     gateway,
		backend:     backend,
		workspaces:  ws,
		callTimeout: 5 * time.Second,
	}

	return &fixture{svc: svc, db: db, gateway: gateway, backend: backend, workspace: ws}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func checkoutRequest(session string, ids ...string) checkoutdomain.CheckoutRequest {
	return checkoutdomain.CheckoutRequest{
		SessionID: session,
		BundleIDs: ids,
		Interval:  "monthly",
		Card: paymentdomain.CardDetails{
			Number:   "4242424242424242",
			ExpMonth: 12,
			ExpYear:  2030,
			CVC:      "123",
		},
		Customer: checkoutdomain.CustomerInfo{
			Email: "buyer@example.com",
			Name:  "Buyer",
		},
	}
}

func TestCheckoutFreePlanShortCircuit(t *testing.T) {
	f := setupCheckout(t)

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-free", "free_starter"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.State != checkoutdomain.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", result.State)
	}
	if result.SubscriptionID != checkoutdomain.FreePlanSubscriptionID {
		t.Fatalf("expected %q, got %q", checkoutdomain.FreePlanSubscriptionID, result.SubscriptionID)
	}
	if result.Status != "free" {
		t.Fatalf("expected status free, got %q", result.Status)
	}
	if !result.Pricing.IsFree {
		t.Fatal("expected free pricing")
	}

	creates, confirms := f.gateway.calls()
	if creates != 0 || confirms != 0 || f.backend.calls != 0 || f.workspace.calls != 0 {
		t.Fatalf("free plan must make zero external calls, got create=%d confirm=%d backend=%d workspace=%d",
			creates, confirms, f.backend.calls, f.workspace.calls)
	}
}

func TestCheckoutSuccessWithoutChallenge(t *testing.T) {
	f := setupCheckout(t)
	f.backend.response = &subscriptionapi.CreateSubscriptionResponse{SubscriptionID: "sub_123"}

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-ok", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.State != checkoutdomain.StateSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", result.State, result.Message)
	}
	if result.SubscriptionID != "sub_123" {
		t.Fatalf("expected sub_123, got %q", result.SubscriptionID)
	}
	if result.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", result.Attempt)
	}

	_, confirms := f.gateway.calls()
	if confirms != 0 {
		t.Fatalf("no challenge was requested, confirm called %d times", confirms)
	}
	if f.backend.lastReq.PaymentMethodID != "pm_test" {
		t.Fatalf("backend did not receive the tokenized method: %+v", f.backend.lastReq)
	}
	if f.workspace.calls != 1 {
		t.Fatalf("expected one workspace provisioning call, got %d", f.workspace.calls)
	}
	if f.workspace.lastReq.SubscriptionID != "sub_123" {
		t.Fatalf("workspace got wrong subscription: %+v", f.workspace.lastReq)
	}
}

func TestCheckoutSuccessWithChallenge(t *testing.T) {
	f := setupCheckout(t)
	f.backend.response = &subscriptionapi.CreateSubscriptionResponse{
		RequiresAction:            true,
		PaymentIntentClientSecret: "pi_123_secret_abc",
		SubscriptionID:            "sub_3ds",
	}

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-3ds", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.State != checkoutdomain.StateSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", result.State, result.Message)
	}
	_, confirms := f.gateway.calls()
	if confirms != 1 {
		t.Fatalf("expected one confirm call, got %d", confirms)
	}
}

func TestCheckoutCardValidationFailure(t *testing.T) {
	f := setupCheckout(t)
	f.gateway.createErr = &paymentdomain.GatewayError{Code: "invalid_number", Message: "bad"}

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-badcard", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.State != checkoutdomain.StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	if result.FailureCategory != checkoutdomain.CategoryCardValidation {
		t.Fatalf("expected card_validation, got %s", result.FailureCategory)
	}
	if result.Message != "Your card number is invalid." {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if f.backend.calls != 0 {
		t.Fatal("backend must not be called when tokenization fails")
	}
}

func TestCheckoutDeclineOnConfirmAndRetryCounter(t *testing.T) {
	f := setupCheckout(t)
	f.backend.response = &subscriptionapi.CreateSubscriptionResponse{
		RequiresAction:            true,
		PaymentIntentClientSecret: "pi_456_secret_def",
	}
	f.gateway.confirmErr = &paymentdomain.GatewayError{Code: "card_declined"}

	req := checkoutRequest("sess-decline", "creator", "ecommerce")

	first, err := f.svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if first.State != checkoutdomain.StateFailed {
		t.Fatalf("expected failed, got %s", first.State)
	}
	if first.FailureCategory != checkoutdomain.CategoryAuthentication {
		t.Fatalf("expected authentication, got %s", first.FailureCategory)
	}
	want := "Your card was declined. Please try a different payment method or contact your bank."
	if first.Message != want {
		t.Fatalf("expected %q, got %q", want, first.Message)
	}
	if first.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", first.Attempt)
	}

	second, err := f.svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("checkout retry: %v", err)
	}
	if second.Attempt != 2 {
		t.Fatalf("expected attempt 2 after a failure, got %d", second.Attempt)
	}
}

func TestCheckoutBackendErrorMapping(t *testing.T) {
	f := setupCheckout(t)
	f.backend.err = &subscriptionapi.APIError{StatusCode: 402, Message: "Card error: insufficient funds"}

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-backend", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.FailureCategory != checkoutdomain.CategoryBackend {
		t.Fatalf("expected backend, got %s", result.FailureCategory)
	}
	want := "There was a problem with your card. Please check your details and try again."
	if result.Message != want {
		t.Fatalf("expected %q, got %q", want, result.Message)
	}
}

func TestCheckoutNetworkErrorMapping(t *testing.T) {
	f := setupCheckout(t)
	f.backend.err = errors.New("dial tcp 10.0.0.1:443: i/o timeout")

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-net", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.FailureCategory != checkoutdomain.CategoryNetwork {
		t.Fatalf("expected network, got %s", result.FailureCategory)
	}
	if result.Message != "The request timed out. Please try again." {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestCheckoutValidation(t *testing.T) {
	f := setupCheckout(t)

	_, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-empty"))
	if !errors.Is(err, checkoutdomain.ErrEmptySelection) {
		t.Fatalf("expected empty selection error, got %v", err)
	}

	req := checkoutRequest("sess-interval", "creator")
	req.Interval = "weekly"
	_, err = f.svc.Checkout(context.Background(), req)
	if !errors.Is(err, checkoutdomain.ErrInvalidInterval) {
		t.Fatalf("expected invalid interval error, got %v", err)
	}

	creates, _ := f.gateway.calls()
	if creates != 0 {
		t.Fatal("rejected submissions must not reach the gateway")
	}
}

func TestCheckoutPersistsAttemptAuditTrail(t *testing.T) {
	f := setupCheckout(t)
	f.backend.response = &subscriptionapi.CreateSubscriptionResponse{SubscriptionID: "sub_audit"}

	result, err := f.svc.Checkout(context.Background(), checkoutRequest("sess-audit", "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	attempt, err := f.svc.GetAttempt(context.Background(), result.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.State != checkoutdomain.StateSucceeded {
		t.Fatalf("expected persisted succeeded state, got %s", attempt.State)
	}
	if attempt.SubscriptionID == nil || *attempt.SubscriptionID != "sub_audit" {
		t.Fatalf("expected persisted subscription id, got %v", attempt.SubscriptionID)
	}
	if !attempt.Amount.Equal(result.Pricing.DiscountedPrice) {
		t.Fatalf("persisted amount %s does not match quote %s", attempt.Amount, result.Pricing.DiscountedPrice)
	}
}

func TestGetAttemptErrors(t *testing.T) {
	f := setupCheckout(t)

	if _, err := f.svc.GetAttempt(context.Background(), "not-a-snowflake"); !errors.Is(err, checkoutdomain.ErrInvalidAttemptID) {
		t.Fatalf("expected invalid id error, got %v", err)
	}
	if _, err := f.svc.GetAttempt(context.Background(), "123456789"); !errors.Is(err, checkoutdomain.ErrAttemptNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCheckoutSupersededAttempt(t *testing.T) {
	f := setupCheckout(t)
	svc := f.svc.(*Service)

	req := checkoutRequest("sess-stale", "creator", "ecommerce")
	result, err := svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.Superseded {
		t.Fatal("only attempt must not be superseded")
	}

	// Simulate a newer submission finishing the race first.
	svc.latest.Store(req.SessionID, svc.genID.Generate())

	attemptID, err := snowflake.ParseString(result.AttemptID)
	if err != nil {
		t.Fatalf("parse attempt id: %v", err)
	}
	stale := &checkoutdomain.CheckoutAttempt{ID: attemptID, SessionID: req.SessionID}
	if !svc.superseded(stale) {
		t.Fatal("expected the earlier attempt to be flagged as superseded")
	}
}

func TestCheckoutFinishedSessionsNotTracked(t *testing.T) {
	f := setupCheckout(t)
	svc := f.svc.(*Service)

	if _, err := svc.Checkout(context.Background(), checkoutRequest("sess-paid", "creator", "ecommerce")); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, ok := svc.latest.Load("sess-paid"); ok {
		t.Fatal("finished paid attempt must not stay tracked")
	}

	if _, err := svc.Checkout(context.Background(), checkoutRequest("sess-free", "free_starter")); err != nil {
		t.Fatalf("free checkout: %v", err)
	}
	if _, ok := svc.latest.Load("sess-free"); ok {
		t.Fatal("finished free attempt must not stay tracked")
	}
}

func TestCheckoutFreeAfterFailureKeepsCounter(t *testing.T) {
	f := setupCheckout(t)
	f.gateway.createErr = &paymentdomain.GatewayError{Code: "invalid_number", Message: "bad card"}

	session := "sess-downgrade"
	first, err := f.svc.Checkout(context.Background(), checkoutRequest(session, "creator", "ecommerce"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if first.State != checkoutdomain.StateFailed {
		t.Fatalf("expected failed, got %s", first.State)
	}
	if first.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", first.Attempt)
	}

	second, err := f.svc.Checkout(context.Background(), checkoutRequest(session, "free_starter"))
	if err != nil {
		t.Fatalf("free checkout: %v", err)
	}
	if second.Status != "free" {
		t.Fatalf("expected status free, got %q", second.Status)
	}
	if second.Attempt != 2 {
		t.Fatalf("expected attempt 2 after a failure, got %d", second.Attempt)
	}
}
