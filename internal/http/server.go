package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/http/middleware"
	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/repository"
	"github.com/citymesh/message-gateway/internal/stats"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, db *sqlx.DB, rds *redis.Client, router *delivery.Router) *Server {
	keysRepo := repository.NewAPIKeysRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	statsSvc := stats.NewService(repository.NewDeliveryStore(db, repository.NewMessagesRepository(db), historyRepo, repository.NewOutboxRepository(db)))

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger(), middleware.RequestIDMiddleware())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(keysRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:caller:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	agg := router.Aggregator()

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/sms", sendSMSHandler(router))
	v1.POST("/email", sendEmailHandler(router))
	v1.POST("/digital-mail", sendDigitalMailHandler(router))
	v1.POST("/web-message", sendWebMessageHandler(router))
	v1.POST("/snail-mail", sendSnailMailHandler(router))
	v1.POST("/letter", sendLetterHandler(router))
	v1.POST("/slack", sendSlackHandler(router))
	v1.POST("/digital-invoice", sendDigitalInvoiceHandler(router))
	v1.POST("/messages", sendMessageHandler(router))

	v1.GET("/status/deliveries/:deliveryId", deliveryStatusHandler(agg))
	v1.GET("/status/messages/:messageId", messageStatusHandler(agg))
	v1.GET("/status/batches/:batchId", batchStatusHandler(agg))
	v1.GET("/statistics/batches/:batchId", batchStatisticsHandler(statsSvc))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
