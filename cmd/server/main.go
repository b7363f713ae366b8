package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/config"
	"github.com/habeasdata/consent-campaigns/internal/dao"
	"github.com/habeasdata/consent-campaigns/internal/database"
	"github.com/habeasdata/consent-campaigns/internal/gateway"
	"github.com/habeasdata/consent-campaigns/internal/router"
	"github.com/habeasdata/consent-campaigns/internal/service"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Habeas Data campaign server...")

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	if !cfg.Links.IsSecurePublicDomain() {
		logger.WithField("public_domain", cfg.Links.PublicDomain).
			Warn("Public domain is not HTTPS; consent links should always use HTTPS")
	}

	db, err := database.Initialize(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	logger.Info("Database connection established successfully")

	store := dao.NewStore(db)
	gatewayClient := gateway.NewClient(&cfg.Gateway, cfg.Links.PublicDomain, logger)

	consentService := service.NewConsentService(store, logger)
	dispatchService := service.NewDispatchService(
		store,
		gatewayClient,
		service.RandomDelayer{Min: cfg.Dispatch.PacingMin, Max: cfg.Dispatch.PacingMax},
		cfg.Links.DefaultValidityDays,
		cfg.Links.ExtendOnResend,
		logger,
	)
	reportService := service.NewReportService(store, logger)

	logger.Info("Services initialized successfully")

	ginRouter := router.SetupRouter(router.Options{
		Store:           store,
		ConsentService:  consentService,
		DispatchService: dispatchService,
		ReportService:   reportService,
		InstanceClient:  gatewayClient,
		StaleAfterDays:  cfg.Dispatch.StaleAfterDays,
		TemplatesGlob:   "web/templates/*.html",
		Logger:          logger,
	})

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("address", server.Addr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}
