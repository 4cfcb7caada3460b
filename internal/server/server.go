package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	"github.com/fakturo/fakturo/internal/config"
	"github.com/fakturo/fakturo/internal/customer"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	"github.com/fakturo/fakturo/internal/invoice"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/merchant"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/fakturo/fakturo/internal/observability"
	obsmiddleware "github.com/fakturo/fakturo/internal/observability/logger"
	"github.com/fakturo/fakturo/internal/providers"
	"github.com/fakturo/fakturo/internal/providers/pdf"
	"github.com/fakturo/fakturo/internal/publicinvoice"
	publicinvoicedomain "github.com/fakturo/fakturo/internal/publicinvoice/domain"
	"github.com/fakturo/fakturo/internal/recurring"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
	"github.com/fakturo/fakturo/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	merchant.Module,
	customer.Module,
	invoice.Module,
	recurring.Module,
	publicinvoice.Module,
	providers.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine           *gin.Engine
	cfg              config.Config
	genID            *snowflake.Node
	clock            clock.Clock
	merchantSvc      merchantdomain.Service
	customerSvc      customerdomain.Service
	invoiceSvc       invoicedomain.Service
	recurringSvc     recurringdomain.Service
	publicInvoiceSvc publicinvoicedomain.Service
	pdfProvider      pdf.Provider
	scheduler        *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	GenID            *snowflake.Node
	Clock            clock.Clock
	MerchantSvc      merchantdomain.Service
	CustomerSvc      customerdomain.Service
	InvoiceSvc       invoicedomain.Service
	RecurringSvc     recurringdomain.Service
	PublicInvoiceSvc publicinvoicedomain.Service
	PDFProvider      pdf.Provider
	Scheduler        *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		genID:            p.GenID,
		clock:            p.Clock,
		merchantSvc:      p.MerchantSvc,
		customerSvc:      p.CustomerSvc,
		invoiceSvc:       p.InvoiceSvc,
		recurringSvc:     p.RecurringSvc,
		publicInvoiceSvc: p.PublicInvoiceSvc,
		pdfProvider:      p.PDFProvider,
		scheduler:        p.Scheduler,
	}

	s.registerAPIRoutes()
	s.registerPublicRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/merchants", s.CreateMerchant)

	authed := v1.Group("", s.MerchantRequired())
	authed.GET("/merchant", s.GetMerchant)
	authed.PATCH("/merchant", s.UpdateMerchant)

	authed.POST("/customers", s.CreateCustomer)
	authed.GET("/customers", s.ListCustomers)
	authed.GET("/customers/:id", s.GetCustomer)
	authed.PATCH("/customers/:id", s.UpdateCustomer)
	authed.DELETE("/customers/:id", s.DeleteCustomer)

	authed.POST("/invoices", s.CreateInvoice)
	authed.GET("/invoices", s.ListInvoices)
	authed.GET("/invoices/:id", s.GetInvoice)
	authed.GET("/invoices/:id/pdf", s.GetInvoicePDF)
	authed.POST("/invoices/:id/send", s.SendInvoice)
	authed.POST("/invoices/:id/pay", s.PayInvoice)
	authed.POST("/invoices/:id/cancel", s.CancelInvoice)

	authed.GET("/stats/dashboard", s.GetDashboardStats)

	authed.POST("/recurring-invoices", s.CreateRecurringInvoice)
	authed.GET("/recurring-invoices", s.ListRecurringInvoices)
	authed.GET("/recurring-invoices/:id", s.GetRecurringInvoice)
	authed.PATCH("/recurring-invoices/:id", s.UpdateRecurringInvoice)
	authed.DELETE("/recurring-invoices/:id", s.DeleteRecurringInvoice)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/p")
	public.GET("/invoice/:token", s.ViewPublicInvoice)
	public.GET("/invoice/:token/payment-code.png", s.PublicInvoicePaymentCode)
	public.GET("/invoice/:token/pdf", s.PublicInvoicePDF)
}

func (s *Server) registerAdminRoutes() {
	if s.scheduler == nil {
		return
	}
	admin := s.engine.Group("/admin")
	admin.POST("/scheduler/run", s.RunSchedulerNow)
}

func (s *Server) RunSchedulerNow(c *gin.Context) {
	result, err := s.scheduler.ProcessRecurring(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
