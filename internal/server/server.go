package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/faktur/internal/auth"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/authorization"
	"github.com/smallbiznis/faktur/internal/clock"
	"github.com/smallbiznis/faktur/internal/config"
	"github.com/smallbiznis/faktur/internal/invoice"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/faktur/internal/observability/metrics"
	"github.com/smallbiznis/faktur/internal/payment"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	"github.com/smallbiznis/faktur/internal/providers/pdf"
	"github.com/smallbiznis/faktur/internal/providers/storage"
	"github.com/smallbiznis/faktur/internal/ratelimit"
	"github.com/smallbiznis/faktur/internal/report"
	reportdomain "github.com/smallbiznis/faktur/internal/report/domain"
	"github.com/smallbiznis/faktur/internal/user"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	fx.Provide(registerGin),
	authorization.Module,
	user.Module,
	auth.Module,
	invoice.Module,
	payment.Module,
	report.Module,
	ratelimit.Module,
	pdf.Module,
	storage.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	accessLog := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		accessLog.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	clock        clock.Clock
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	usersvc      userdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	reportSvc    reportdomain.Service
	loginLimiter *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Clock        clock.Clock
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	Usersvc      userdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	ReportSvc    reportdomain.Service
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		clock:        p.Clock,
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		usersvc:      p.Usersvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		reportSvc:    p.ReportSvc,
		loginLimiter: p.LoginLimiter,
	}
}

func registerRoutes(s *Server) {
	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.registerHealthRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Invoices --------
	api.GET("/invoices", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.POST("/invoices", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeleteInvoice)
	api.PUT("/invoices/:id/submit", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceSubmit), s.SubmitInvoice)
	api.POST("/invoices/:id/export", s.RequireAction(authorization.ObjectInvoice, authorization.ActionInvoiceExport), s.ExportInvoice)

	// -------- Payments --------
	api.GET("/payments", s.RequireAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	api.POST("/payments", s.RequireAction(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.CreatePayment)

	// -------- Reports --------
	api.GET("/reports/summary", s.RequireAction(authorization.ObjectReport, authorization.ActionReportView), s.ReportSummary)
	api.GET("/reports/analytics", s.RequireAction(authorization.ObjectReport, authorization.ActionReportView), s.ReportAnalytics)

	// -------- Users --------
	api.GET("/users", s.RequireAction(authorization.ObjectUser, authorization.ActionUserView), s.ListCustomers)
	api.POST("/users", s.RequireAction(authorization.ObjectUser, authorization.ActionUserCreate), s.CreateUser)
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}
