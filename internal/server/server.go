// Package server exposes the rating and billing operations over HTTP.
// Callers are assumed to be authorized upstream; handlers only validate the
// shape of what they receive.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voxbilllabs/voxbill/internal/config"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

type Server struct {
	cfg *config.Config
	log *zap.Logger

	ratingSvc  ratingdomain.Service
	ledgerSvc  ledgerdomain.Service
	invoiceSvc invoicedomain.Service
	rateSvc    ratecarddomain.Service
	tariffSvc  tariffdomain.Service
}

type ServerParam struct {
	fx.In

	Cfg        *config.Config
	Log        *zap.Logger
	RatingSvc  ratingdomain.Service
	LedgerSvc  ledgerdomain.Service
	InvoiceSvc invoicedomain.Service
	RateSvc    ratecarddomain.Service
	TariffSvc  tariffdomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		ratingSvc:  p.RatingSvc,
		ledgerSvc:  p.LedgerSvc,
		invoiceSvc: p.InvoiceSvc,
		rateSvc:    p.RateSvc,
		tariffSvc:  p.TariffSvc,
	}
}

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log.Named("http")), metricsMiddleware())
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	api.POST("/usage", s.IngestUsage)
	api.POST("/usage/:id/rate", s.RateUsage)

	api.POST("/accounts/:id/credit", s.CreditAccount)
	api.GET("/accounts/:id/ledger", s.GetLedgerHistory)
	api.GET("/accounts/:id/wallet", s.GetWallet)
	api.POST("/accounts/:id/invoices", s.GenerateInvoice)
	api.GET("/accounts/:id/invoices", s.ListInvoices)

	api.GET("/invoices/:id", s.GetInvoice)
	api.POST("/invoices/:id/pay", s.PayInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)

	api.GET("/rates", s.ListRates)
	api.POST("/rates", s.SaveRate)
	api.GET("/tariffs", s.ListTariffs)
	api.POST("/tariffs", s.SaveTariff)
	api.DELETE("/tariffs/:id", s.DeleteTariff)
}

func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, server *Server, cfg *config.Config, log *zap.Logger) {
	server.RegisterRoutes(engine)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
