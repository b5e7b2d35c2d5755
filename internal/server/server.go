package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/mewayz/billing/internal/catalog"
	catalogdomain "github.com/mewayz/billing/internal/catalog/domain"
	"github.com/mewayz/billing/internal/checkout"
	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	"github.com/mewayz/billing/internal/config"
	"github.com/mewayz/billing/internal/observability"
	obsmiddleware "github.com/mewayz/billing/internal/observability/logger"
	obsmetrics "github.com/mewayz/billing/internal/observability/metrics"
	obstracing "github.com/mewayz/billing/internal/observability/tracing"
	"github.com/mewayz/billing/internal/payment"
	"github.com/mewayz/billing/internal/pricing"
	pricingdomain "github.com/mewayz/billing/internal/pricing/domain"
	"github.com/mewayz/billing/internal/ratelimit"
	"github.com/mewayz/billing/internal/subscriptionapi"
	"github.com/mewayz/billing/internal/workspace"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	catalog.Module,
	pricing.Module,
	payment.Module,
	subscriptionapi.Module,
	workspace.Module,
	ratelimit.Module,
	checkout.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	catalogSvc  catalogdomain.Service
	pricingSvc  pricingdomain.Service
	checkoutSvc checkoutdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	CatalogSvc  catalogdomain.Service
	PricingSvc  pricingdomain.Service
	CheckoutSvc checkoutdomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		catalogSvc:  p.CatalogSvc,
		pricingSvc:  p.PricingSvc,
		checkoutSvc: p.CheckoutSvc,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.GET("/catalog/bundles", s.ListBundles)
		v1.POST("/pricing/preview", s.PreviewPricing)
		v1.POST("/checkout", s.Checkout)
		v1.GET("/checkout/attempts/:id", s.GetCheckoutAttempt)
	}
}
