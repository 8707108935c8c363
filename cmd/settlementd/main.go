package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/cache"
	"github.com/TEswarreddy/shopez-sub000/internal/events"
	"github.com/TEswarreddy/shopez-sub000/internal/gateway"
	"github.com/TEswarreddy/shopez-sub000/internal/handler"
	"github.com/TEswarreddy/shopez-sub000/internal/repository"
	"github.com/TEswarreddy/shopez-sub000/internal/service"
	"github.com/TEswarreddy/shopez-sub000/pkg/config"
	"github.com/TEswarreddy/shopez-sub000/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("aws_region", cfg.AWSRegion))

	ctx := context.Background()

	dynamoClient, err := repository.NewDynamoDBClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client:", err)
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		log.Fatal("Failed to create Kafka producer:", err)
	}
	defer producer.Close()

	reportCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		log.Fatal("Failed to connect redis:", err)
	}
	defer reportCache.Close()

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:       cfg.GatewayBaseURL,
		KeyID:         cfg.GatewayKeyID,
		KeySecret:     cfg.GatewayKeySecret,
		WebhookSecret: cfg.GatewayWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	}, logger)

	catalogRepo := repository.NewCatalogRepository(dynamoClient, cfg.CatalogTableName)
	orderRepo := repository.NewOrderRepository(dynamoClient, cfg.OrderTableName)
	paymentRepo := repository.NewPaymentRepository(dynamoClient, cfg.PaymentTableName)

	orderService := service.NewOrderService(orderRepo, catalogRepo, gatewayClient, producer, cfg.Currency, logger)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, catalogRepo, gatewayClient, producer, cfg.DefaultCommissionPercentage, logger)
	reportService := service.NewReportService(paymentRepo, reportCache, cfg.ReportCacheTTL, logger)

	orderHandler := handler.NewOrderHandler(orderService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	webhookHandler := handler.NewWebhookHandler(paymentService, gatewayClient, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	// Gateway webhooks authenticate by body signature, not actor headers.
	router.POST("/webhooks/gateway", webhookHandler.Handle)

	v1 := router.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status":  "healthy",
			"service": "settlement-core",
			"port":    cfg.Port,
		}
		if err := producer.HealthCheck(); err != nil {
			status["kafka"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["kafka"] = "healthy"
		c.JSON(http.StatusOK, status)
	})

	authed := v1.Group("")
	authed.Use(middleware.Actor())
	{
		authed.POST("/orders", orderHandler.CreateOrder)
		authed.GET("/orders", orderHandler.ListOrders)
		authed.GET("/orders/:number", orderHandler.GetOrder)
		authed.POST("/orders/:number/charge", orderHandler.OpenCharge)
		authed.POST("/orders/:number/cancel", orderHandler.CancelOrder)
		authed.PATCH("/orders/:number/items/:index", orderHandler.UpdateItemStatus)

		authed.POST("/payments/settle", paymentHandler.Settle)
		authed.GET("/payments/:transaction_id", paymentHandler.GetPayment)
		authed.POST("/payments/:transaction_id/refund", paymentHandler.Refund)
		authed.POST("/payments/reconcile", paymentHandler.Reconcile)

		authed.GET("/reports/revenue", reportHandler.RevenueDashboard)
		authed.GET("/reports/trend", reportHandler.RevenueTrend)
		authed.GET("/reports/top", reportHandler.TopEntities)
		authed.GET("/reports/reconciliation", reportHandler.ReconciliationQueue)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
