package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/config"
	"github.com/ikkim/homestay-backend/internal/app/controller"
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	applicationController *controller.ApplicationController
	transitionController  *controller.TransitionController
	documentController    *controller.DocumentController
	paymentController     *controller.PaymentController
	settingsController    *controller.SettingsController
	authMiddleware        *middleware.AuthMiddleware
	config                *config.Config
}

func NewRouter(
	applicationController *controller.ApplicationController,
	transitionController *controller.TransitionController,
	documentController *controller.DocumentController,
	paymentController *controller.PaymentController,
	settingsController *controller.SettingsController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		applicationController: applicationController,
		transitionController:  transitionController,
		documentController:    documentController,
		paymentController:     paymentController,
		settingsController:    settingsController,
		authMiddleware:        authMiddleware,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Homestay registration API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		applications := v1.Group("/applications")
		applications.Use(r.authMiddleware.Authenticate())
		{
			applications.GET("", r.applicationController.ListApplications)
			applications.POST("",
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.applicationController.CreateApplication,
			)
			applications.GET("/:id", r.applicationController.GetApplication)
			applications.PUT("/:id",
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.applicationController.UpdateApplication,
			)
			applications.GET("/:id/fee", r.applicationController.GetFee)
			applications.GET("/:id/actions", r.applicationController.GetHistory)
			applications.POST("/:id/transitions/:transition", r.transitionController.Apply)
			applications.POST("/:id/service-requests",
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.applicationController.CreateServiceRequest,
			)

			applications.GET("/:id/documents", r.documentController.ListDocuments)
			applications.POST("/:id/documents",
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.documentController.RegisterDocument,
			)
			applications.POST("/:id/documents/upload-url",
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.documentController.RequestUploadURL,
			)

			applications.GET("/:id/payments", r.paymentController.ListTransactions)
		}

		documents := v1.Group("/documents")
		documents.Use(r.authMiddleware.Authenticate())
		{
			documents.PUT("/:id/verification",
				r.authMiddleware.RequireRole(model.RoleDealingAssistant),
				r.documentController.VerifyDocument,
			)
		}

		payment := v1.Group("/payment")
		{
			// the gateway posts the browser back without our token
			payment.GET("/callback", r.paymentController.CallbackHoldingPage)
			payment.POST("/callback", r.paymentController.Callback)

			payment.POST("/initiate",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RolePropertyOwner),
				r.paymentController.InitiatePayment,
			)
			payment.POST("/verify/:appRefNo",
				r.authMiddleware.Authenticate(),
				r.paymentController.VerifyPayment,
			)
			payment.POST("/reset/:applicationId",
				r.authMiddleware.Authenticate(),
				r.paymentController.ResetPayment,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleStateOfficer, model.RoleAdmin),
		)
		{
			admin.GET("/settings", r.settingsController.ListSettings)
			admin.PUT("/settings/:key", r.settingsController.UpdateSetting)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
