package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	"github.com/mewayz/billing/internal/clock"
	"github.com/mewayz/billing/internal/config"
	"github.com/mewayz/billing/internal/observability/logger"
	"github.com/mewayz/billing/internal/observability/metrics"
	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
	"github.com/mewayz/billing/internal/ratelimit"
	"github.com/mewayz/billing/internal/subscriptionapi"
	"github.com/mewayz/billing/internal/workspace"
)

type Service struct {
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	clock       clock.Clock
	repo        checkoutdomain.Repository
	pricing     pricingdomain.Service
	gateway     paymentdomain.Gateway
	backend     subscriptionapi.Client
	workspaces  workspace.Client
	limiter     *ratelimit.CheckoutLimiter
	metrics     *metrics.Metrics
	callTimeout time.Duration

	// latest tracks the most recent attempt id per session so a slow
	// response from a superseded attempt cannot be mistaken for the
	// current one.
	latest sync.Map
}

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       checkoutdomain.Repository
	Pricing    pricingdomain.Service
	Gateway    paymentdomain.Gateway
	Backend    subscriptionapi.Client
	Workspaces workspace.Client
	Limiter    *ratelimit.CheckoutLimiter `optional:"true"`
	Metrics    *metrics.Metrics           `optional:"true"`
}

func NewService(p ServiceParam) checkoutdomain.Service {
	return &Service{
		log:         p.Log.Named("checkout.service"),
		db:          p.DB,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		pricing:     p.Pricing,
		gateway:     p.Gateway,
		backend:     p.Backend,
		workspaces:  p.Workspaces,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
		callTimeout: p.Cfg.CallTimeout,
	}
}

func (s *Service) Checkout(ctx context.Context, req checkoutdomain.CheckoutRequest) (checkoutdomain.CheckoutResult, error) {
	log := logger.WithContext(ctx, s.log)

	sel := catalogdomain.NewSelection(req.BundleIDs...)
	if sel.Size() == 0 {
		return checkoutdomain.CheckoutResult{}, checkoutdomain.ErrEmptySelection
	}

	rawInterval := req.Interval
	if rawInterval == "" {
		rawInterval = string(catalogdomain.IntervalMonthly)
	}
	interval, ok := catalogdomain.ParseInterval(rawInterval)
	if !ok {
		return checkoutdomain.CheckoutResult{}, checkoutdomain.ErrInvalidInterval
	}

	pricing := s.pricing.Quote(ctx, pricingdomain.QuoteRequest{Selection: sel, Interval: interval})

	// Free tier bypasses the whole state machine: no tokenization, no
	// backend call, no challenge. This short-circuit is deliberate.
	if pricing.IsFree {
		return s.succeedFree(ctx, log, req, sel, interval, pricing), nil
	}

	if s.limiter.Enabled() {
		if allowed, err := s.limiter.AllowCustomer(ctx, req.Customer.Email); err != nil {
			log.Warn("checkout customer rate limit check failed", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordRateLimitDenied(ctx, "checkout", "customer")
			return checkoutdomain.CheckoutResult{}, checkoutdomain.ErrRateLimited
		}
		if allowed, err := s.limiter.AllowIP(ctx, req.ClientIP); err != nil {
			log.Warn("checkout ip rate limit check failed", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordRateLimitDenied(ctx, "checkout", "ip")
			return checkoutdomain.CheckoutResult{}, checkoutdomain.ErrRateLimited
		}
		s.metrics.RecordRateLimitAllowed(ctx, "checkout")

		token, locked, err := s.limiter.TryLockSession(ctx, req.SessionID)
		if err != nil {
			log.Warn("checkout session lock failed", zap.Error(err))
		} else if !locked {
			return checkoutdomain.CheckoutResult{}, checkoutdomain.ErrAttemptInFlight
		} else {
			defer func() {
				if err := s.limiter.ReleaseSession(context.WithoutCancel(ctx), req.SessionID, token); err != nil {
					log.Warn("checkout session unlock failed", zap.Error(err))
				}
			}()
		}
	}

	attempt := s.newAttempt(ctx, log, req, sel, interval, pricing)
	s.latest.Store(req.SessionID, attempt.ID)

	// CollectingPaymentMethod: tokenize the card with the payment provider.
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	pm, err := s.gateway.CreatePaymentMethod(callCtx, req.Card, paymentdomain.BillingDetails{
		Email: req.Customer.Email,
		Name:  req.Customer.Name,
	})
	cancel()
	if err != nil {
		var gerr *paymentdomain.GatewayError
		if errors.As(err, &gerr) {
			return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryCardValidation, checkoutdomain.CardValidationMessage(gerr)), nil
		}
		return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryNetwork, checkoutdomain.NetworkMessage(err)), nil
	}

	// CreatingSubscription: hand the token to the backend.
	s.transition(ctx, log, attempt, checkoutdomain.StateCreatingSubscription)
	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	resp, err := s.backend.CreateSubscription(callCtx, subscriptionapi.CreateSubscriptionRequest{
		PaymentMethodID: pm.ID,
		Bundles:         sel.IDs(),
		PaymentInterval: string(interval),
		CustomerInfo: subscriptionapi.CustomerInfo{
			Email: req.Customer.Email,
			Name:  req.Customer.Name,
		},
	})
	cancel()
	if err != nil {
		var apiErr *subscriptionapi.APIError
		if errors.As(err, &apiErr) {
			return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryBackend, checkoutdomain.BackendMessage(apiErr.Message)), nil
		}
		return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryNetwork, checkoutdomain.NetworkMessage(err)), nil
	}

	// AuthenticationRequired -> Confirming: complete the 3DS challenge
	// with the client secret the backend handed back.
	if resp.RequiresAction {
		s.transition(ctx, log, attempt, checkoutdomain.StateAuthenticationRequired)
		s.transition(ctx, log, attempt, checkoutdomain.StateConfirming)

		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		err = s.gateway.ConfirmPayment(callCtx, resp.PaymentIntentClientSecret)
		cancel()
		if err != nil {
			var gerr *paymentdomain.GatewayError
			if errors.As(err, &gerr) {
				return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryAuthentication, checkoutdomain.ConfirmMessage(gerr)), nil
			}
			return s.fail(ctx, log, attempt, pricing, checkoutdomain.CategoryNetwork, checkoutdomain.NetworkMessage(err)), nil
		}
	}

	result := s.succeed(ctx, log, attempt, pricing, resp.SubscriptionID, "active")

	s.provisionWorkspace(ctx, log, req, sel, resp.SubscriptionID)

	return result, nil
}

func (s *Service) GetAttempt(ctx context.Context, id string) (checkoutdomain.CheckoutAttempt, error) {
	attemptID, err := snowflake.ParseString(id)
	if err != nil {
		return checkoutdomain.CheckoutAttempt{}, checkoutdomain.ErrInvalidAttemptID
	}
	attempt, err := s.repo.FindByID(ctx, s.db, attemptID)
	if err != nil {
		return checkoutdomain.CheckoutAttempt{}, err
	}
	return *attempt, nil
}

// newAttempt persists the audit record for a fresh submission. The ordinal
// counts this session's prior failures plus one, for "attempt N" display.
func (s *Service) newAttempt(
	ctx context.Context,
	log *zap.Logger,
	req checkoutdomain.CheckoutRequest,
	sel catalogdomain.Selection,
	interval catalogdomain.BillingInterval,
	pricing pricingdomain.PricingResult,
) *checkoutdomain.CheckoutAttempt {
	ordinal := int64(0)
	count, err := s.repo.CountFailedBySession(ctx, s.db, req.SessionID)
	if err != nil {
		log.Warn("count prior attempts failed", zap.Error(err))
	} else {
		ordinal = count
	}

	attempt := &checkoutdomain.CheckoutAttempt{
		ID:              s.genID.Generate(),
		SessionID:       req.SessionID,
		State:           checkoutdomain.StateCollectingPaymentMethod,
		BundleIDs:       sel.IDs(),
		BillingInterval: string(interval),
		Amount:          pricing.DiscountedPrice,
		DiscountRate:    pricing.DiscountRate,
		CustomerEmail:   req.Customer.Email,
		CustomerName:    req.Customer.Name,
		Ordinal:         int(ordinal) + 1,
		CreatedAt:       s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, attempt); err != nil {
		log.Warn("persist checkout attempt failed", zap.Error(err))
	}
	return attempt
}

func (s *Service) transition(ctx context.Context, log *zap.Logger, attempt *checkoutdomain.CheckoutAttempt, state checkoutdomain.AttemptState) {
	attempt.State = state
	log.Debug("checkout state transition",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("state", string(state)),
	)
	if err := s.repo.Update(ctx, s.db, attempt); err != nil {
		log.Warn("persist checkout state failed", zap.Error(err))
	}
}

func (s *Service) fail(
	ctx context.Context,
	log *zap.Logger,
	attempt *checkoutdomain.CheckoutAttempt,
	pricing pricingdomain.PricingResult,
	category checkoutdomain.FailureCategory,
	message string,
) checkoutdomain.CheckoutResult {
	attempt.State = checkoutdomain.StateFailed
	attempt.FailureCategory = &category
	attempt.FailureMessage = &message
	if err := s.repo.Update(ctx, s.db, attempt); err != nil {
		log.Warn("persist checkout failure failed", zap.Error(err))
	}

	s.metrics.RecordCheckoutAttempt(ctx, "failed")
	s.metrics.RecordCheckoutFailure(ctx, string(category))
	log.Info("checkout attempt failed",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("session_id", attempt.SessionID),
		zap.String("category", string(category)),
		zap.Int("attempt", attempt.Ordinal),
	)

	return checkoutdomain.CheckoutResult{
		AttemptID:       attempt.ID.String(),
		State:           checkoutdomain.StateFailed,
		Attempt:         attempt.Ordinal,
		FailureCategory: category,
		Message:         message,
		Pricing:         pricing,
		Superseded:      s.superseded(attempt),
	}
}

func (s *Service) succeed(
	ctx context.Context,
	log *zap.Logger,
	attempt *checkoutdomain.CheckoutAttempt,
	pricing pricingdomain.PricingResult,
	subscriptionID, status string,
) checkoutdomain.CheckoutResult {
	attempt.State = checkoutdomain.StateSucceeded
	attempt.SubscriptionID = &subscriptionID
	if err := s.repo.Update(ctx, s.db, attempt); err != nil {
		log.Warn("persist checkout success failed", zap.Error(err))
	}

	s.metrics.RecordCheckoutAttempt(ctx, "succeeded")
	log.Info("checkout attempt succeeded",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("session_id", attempt.SessionID),
		zap.String("subscription_id", subscriptionID),
	)

	return checkoutdomain.CheckoutResult{
		AttemptID:      attempt.ID.String(),
		State:          checkoutdomain.StateSucceeded,
		SubscriptionID: subscriptionID,
		Status:         status,
		Attempt:        attempt.Ordinal,
		Pricing:        pricing,
		Superseded:     s.superseded(attempt),
	}
}

func (s *Service) succeedFree(
	ctx context.Context,
	log *zap.Logger,
	req checkoutdomain.CheckoutRequest,
	sel catalogdomain.Selection,
	interval catalogdomain.BillingInterval,
	pricing pricingdomain.PricingResult,
) checkoutdomain.CheckoutResult {
	ordinal := int64(0)
	count, err := s.repo.CountFailedBySession(ctx, s.db, req.SessionID)
	if err != nil {
		log.Warn("count prior attempts failed", zap.Error(err))
	} else {
		ordinal = count
	}

	subscriptionID := checkoutdomain.FreePlanSubscriptionID
	attempt := &checkoutdomain.CheckoutAttempt{
		ID:              s.genID.Generate(),
		SessionID:       req.SessionID,
		State:           checkoutdomain.StateSucceeded,
		BundleIDs:       sel.IDs(),
		BillingInterval: string(interval),
		Amount:          pricing.DiscountedPrice,
		DiscountRate:    pricing.DiscountRate,
		CustomerEmail:   req.Customer.Email,
		CustomerName:    req.Customer.Name,
		Ordinal:         int(ordinal) + 1,
		SubscriptionID:  &subscriptionID,
		CreatedAt:       s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, attempt); err != nil {
		log.Warn("persist checkout attempt failed", zap.Error(err))
	}
	s.latest.Store(req.SessionID, attempt.ID)

	s.metrics.RecordCheckoutAttempt(ctx, "free")
	log.Info("free plan checkout",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("session_id", attempt.SessionID),
	)

	return checkoutdomain.CheckoutResult{
		AttemptID:      attempt.ID.String(),
		State:          checkoutdomain.StateSucceeded,
		SubscriptionID: subscriptionID,
		Status:         "free",
		Attempt:        attempt.Ordinal,
		Pricing:        pricing,
		Superseded:     s.superseded(attempt),
	}
}

// provisionWorkspace kicks off workspace creation after a successful
// checkout. A failure here never changes the checkout outcome.
func (s *Service) provisionWorkspace(ctx context.Context, log *zap.Logger, req checkoutdomain.CheckoutRequest, sel catalogdomain.Selection, subscriptionID string) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()

	err := s.workspaces.CreateWorkspace(callCtx, workspace.CreateWorkspaceRequest{
		Name:           req.Customer.Name,
		OwnerEmail:     req.Customer.Email,
		Bundles:        sel.IDs(),
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		log.Warn("workspace provisioning failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err),
		)
	}
}

// superseded reports whether a newer attempt for the same session started
// while this one was in flight. When the finishing attempt is still the
// latest its entry is dropped, so the map tracks in-flight sessions only.
func (s *Service) superseded(attempt *checkoutdomain.CheckoutAttempt) bool {
	if s.latest.CompareAndDelete(attempt.SessionID, attempt.ID) {
		return false
	}
	_, ok := s.latest.Load(attempt.SessionID)
	return ok
}
