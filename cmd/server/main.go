package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/homestay-backend/config"
	"github.com/ikkim/homestay-backend/internal/app/controller"
	"github.com/ikkim/homestay-backend/internal/app/service"
	"github.com/ikkim/homestay-backend/internal/cache"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/ikkim/homestay-backend/internal/lock"
	"github.com/ikkim/homestay-backend/internal/middleware"
	"github.com/ikkim/homestay-backend/internal/notifier"
	"github.com/ikkim/homestay-backend/internal/router"
	"github.com/ikkim/homestay-backend/internal/scheduler"
	"github.com/ikkim/homestay-backend/internal/storage"
	"github.com/ikkim/homestay-backend/pkg/logger"
	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
	"github.com/ikkim/homestay-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting homestay registration backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.SeedReferenceData(db.GetDB()); err != nil {
		logger.Warn("Failed to seed reference data", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Transition lock: redis when several instances share the database
	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize redis", err)
		}
		defer redis.Close()
		locker = lock.NewRedis(redis.GetClient(), cfg.Redis.LockTTL, 5*time.Second)
	}

	// Notification outbox
	var sink notifier.Notifier = notifier.LogNotifier{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := notifier.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		defer kafkaNotifier.Close()
		sink = kafkaNotifier
	}

	repos := service.NewRepositories(db.GetDB())
	dispatcher := notifier.NewDispatcher(repos.Notifications, sink, cfg.Workflow.OutboxBatchSize, cfg.Workflow.OutboxInterval)
	dispatcher.Start(ctx)

	// Document storage
	var store storage.DocumentStore = storage.Disabled{}
	if cfg.S3.Bucket != "" {
		store = storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	}

	// Treasury gateway
	hk := cfg.Payment.HimKosh
	gateway, err := himkosh.NewClient(himkosh.Config{
		PaymentURL:   hk.PaymentURL,
		VerifyURL:    hk.VerifyURL,
		MerchantCode: hk.MerchantCode,
		ServiceCode:  hk.ServiceCode,
		DeptID:       hk.DeptID,
		ReturnURL:    hk.ReturnURL,
		Key:          []byte(hk.Key),
	})
	if err != nil {
		logger.Fatal("Failed to configure treasury gateway", err)
	}

	// Initialize services
	now := time.Now
	fees := service.NewFeeSchedule(cfg.Workflow.CertificateValidity)
	settingsService := service.NewSettingsService(
		repos.Settings,
		cache.NewTTL[string](cfg.Workflow.SettingsCacheTTL, now),
		service.PaymentMode{TestMode: hk.TestMode, TestAmount: hk.TestAmount},
		now,
	)
	workflowService := service.NewWorkflowService(db.GetDB(), repos, fees, locker, dispatcher, now)
	applicationService := service.NewApplicationService(db.GetDB(), repos, fees, cfg.Workflow.MaxRooms)
	documentService := service.NewDocumentService(repos, store, now)
	serviceRequestService := service.NewServiceRequestService(db.GetDB(), repos, cfg.Workflow.MaxRooms, cfg.Workflow.RenewalWindowDays, now)
	paymentService := service.NewPaymentService(
		db.GetDB(),
		repos,
		gateway,
		workflowService,
		service.NewDDODirectory(repos.DDOs),
		settingsService,
		service.PaymentOptions{
			Head1:       hk.Head1,
			Head2:       hk.Head2,
			Amount2:     hk.Amount2,
			FallbackDDO: hk.FallbackDDO,
		},
		now,
	)

	reconciler := scheduler.NewReconcileScheduler(paymentService, cfg.Workflow.ReconcileCron, cfg.Workflow.ReconcileAfter)
	if err := reconciler.Start(); err != nil {
		logger.Fatal("Failed to start reconciliation scheduler", err)
	}
	defer reconciler.Stop()

	// Initialize controllers
	applicationController := controller.NewApplicationController(applicationService, workflowService, serviceRequestService)
	transitionController := controller.NewTransitionController(workflowService)
	documentController := controller.NewDocumentController(documentService)
	paymentController := controller.NewPaymentController(paymentService, cfg.Server.PortalBaseURL, cfg.CORS.AllowedOrigins)
	settingsController := controller.NewSettingsController(settingsService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		applicationController,
		transitionController,
		documentController,
		paymentController,
		settingsController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	stop()
	dispatcher.Wait()

	logger.Info("Server stopped successfully")
}
