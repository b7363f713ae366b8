package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/dao"
	"github.com/habeasdata/consent-campaigns/internal/handlers"
	"github.com/habeasdata/consent-campaigns/internal/service"
)

// Options bundles the collaborators the router wires into handlers.
type Options struct {
	Store           *dao.Store
	ConsentService  *service.ConsentService
	DispatchService *service.DispatchService
	ReportService   *service.ReportService
	InstanceClient  handlers.InstanceClient
	StaleAfterDays  int
	TemplatesGlob   string
	Logger          *logrus.Logger
}

// SetupRouter configures all routes: the public consent capture surface and
// the operator console API.
func SetupRouter(opts Options) *gin.Engine {
	router := gin.Default()

	if opts.TemplatesGlob != "" {
		router.LoadHTMLGlob(opts.TemplatesGlob)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	consentHandler := handlers.NewConsentHandler(opts.ConsentService, opts.Logger)
	dispatchHandler := handlers.NewDispatchHandler(opts.DispatchService, opts.StaleAfterDays, opts.Logger)
	reportHandler := handlers.NewReportHandler(opts.ReportService, opts.StaleAfterDays, opts.Logger)
	termsHandler := handlers.NewTermsHandler(opts.Store, opts.Logger)
	instanceHandler := handlers.NewInstanceHandler(opts.InstanceClient, opts.Logger)

	// Public consent capture surface, reached from the links recipients get.
	auth := router.Group("/auth")
	{
		auth.GET("/:token", consentHandler.ShowConsent)
		auth.POST("/:token", consentHandler.HandleConsent)
		auth.POST("/:token/revoke", consentHandler.HandleRevoke)
	}

	// Operator console API
	v1 := router.Group("/api/v1")
	{
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("/dispatch", dispatchHandler.Dispatch)
			campaigns.POST("/resend-pending", dispatchHandler.ResendPending)
			campaigns.POST("/resend-stale", dispatchHandler.ResendStale)
		}

		v1.POST("/messages/test", dispatchHandler.TestSend)

		requests := v1.Group("/requests")
		{
			requests.GET("", reportHandler.ListRequests)
			requests.GET("/stats", reportHandler.Stats)
			requests.GET("/stale-count", reportHandler.StaleCount)
			requests.GET("/export", reportHandler.ExportEvidence)
		}

		terms := v1.Group("/terms")
		{
			terms.GET("/current", termsHandler.GetCurrent)
			terms.POST("", termsHandler.Create)
		}

		instance := v1.Group("/instance")
		{
			instance.GET("/status", instanceHandler.Status)
			instance.POST("/qr", instanceHandler.ConnectQR)
		}
	}

	return router
}
