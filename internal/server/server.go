package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/remitra/remitra/internal/config"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	PayoutSvc  payoutdomain.Service
	Dispatcher *webhook.Dispatcher
	Inbound    *webhook.Inbound
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	payoutSvc  payoutdomain.Service
	dispatcher *webhook.Dispatcher
	inbound    *webhook.Inbound
}

func New(p Params) *Server {
	if p.Cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(p.Log))
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:     engine,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		payoutSvc:  p.PayoutSvc,
		dispatcher: p.Dispatcher,
		inbound:    p.Inbound,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/payouts", s.createPayout)
		v1.GET("/payouts", s.listPayouts)
		v1.GET("/payouts/:id", s.getPayout)
		v1.GET("/payouts/:id/deliveries", s.listDeliveries)
		v1.POST("/payouts/:id/retry", s.retryPayout)
		v1.POST("/payouts/:id/cancel", s.cancelPayout)

		v1.POST("/webhooks/bank/:bank_code", s.bankWebhook)
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
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

var Module = fx.Module("http.server",
	fx.Provide(New),
	fx.Invoke(run),
)
