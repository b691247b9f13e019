package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/quotient/internal/catalog"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/config"
	"github.com/smallbiznis/quotient/internal/discount"
	"github.com/smallbiznis/quotient/internal/pricing"
	"github.com/smallbiznis/quotient/internal/quote"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	"github.com/smallbiznis/quotient/internal/rule"
	"github.com/smallbiznis/quotient/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	catalog.Module,
	pricing.Module,
	discount.Module,
	tax.Module,
	rule.Module,
	quote.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
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
	quoteSvc    quotedomain.Service
	catalogRepo catalogdomain.Repository
}

type ServerParams struct {
	fx.In

	Engine      *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	QuoteSvc    quotedomain.Service
	CatalogRepo catalogdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Engine,
		cfg:         p.Cfg,
		db:          p.DB,
		quoteSvc:    p.QuoteSvc,
		catalogRepo: p.CatalogRepo,
	}
	s.RegisterAPIRoutes()
	return s
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(s.OrgContext())

	quotes := api.Group("/quotes")
	quotes.POST("", s.CreateQuote)
	quotes.GET("/:id", s.GetQuote)
	quotes.POST("/:id/recompute", s.RecomputeQuote)
	quotes.POST("/:id/submit", s.SubmitQuote)
	quotes.POST("/:id/transition", s.TransitionQuote)
	quotes.POST("/:id/lines", s.AddLineItem)
	quotes.PATCH("/:id/lines/:lineId", s.UpdateLineQuantity)
	quotes.DELETE("/:id/lines/:lineId", s.RemoveLineItem)
	quotes.POST("/:id/discounts", s.ApplyDiscount)
	quotes.DELETE("/:id/discounts/:appliedId", s.RemoveDiscount)

	products := api.Group("/products")
	products.GET("", s.ListProducts)
	products.GET("/:id", s.GetProduct)

	api.GET("/price-books/:id/entries", s.ListPriceBookEntries)
	api.GET("/price-books/:id/entries/:productId", s.GetPriceBookEntry)
	api.GET("/tax-rates", s.ListTaxRates)
}
