package api

import (
	"net/http"

	"medvault-server/config"
	"medvault-server/internal/appointment"
	"medvault-server/internal/auth"
	"medvault-server/internal/drive"
	"medvault-server/internal/logger"
	"medvault-server/internal/medication"
	"medvault-server/internal/metrics"
	"medvault-server/internal/middleware"
	"medvault-server/internal/preview"

	"github.com/gin-gonic/gin"
)

// Services are the repositories the routes are served from.
type Services struct {
	Auth         *auth.Service
	Files        *drive.Service
	Medications  *medication.Repository
	Appointments *appointment.Repository
}

// SetupRouter sets up all API routes
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.Gin())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Initialize handlers
	authHandler := NewAuthHandler(svc.Auth)
	fileHandler := NewFileHandler(svc.Files)
	capacityHandler := NewCapacityHandler(svc.Files)
	previewHandler := preview.NewPreviewHandler(svc.Files)
	medicationHandler := NewMedicationHandler(svc.Medications)
	appointmentHandler := NewAppointmentHandler(svc.Appointments)

	requireAuth := middleware.AuthMiddleware(svc.Auth)
	limitLogin := middleware.RateLimit(cfg.Server.LoginRatePerMinute)

	api := router.Group("/api")
	{
		// Auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", limitLogin, authHandler.Register)
			authRoutes.POST("/login", limitLogin, authHandler.Login)
			authRoutes.POST("/logout", requireAuth, authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.Me)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(requireAuth)
		{
			// File routes
			files := protected.Group("/files")
			{
				files.GET("", fileHandler.GetFiles)
				files.POST("/upload", fileHandler.UploadFile)
				files.POST("/folder", fileHandler.CreateFolder)
				files.GET("/tree", fileHandler.GetFileTree)
				files.GET("/search", fileHandler.SearchFiles)
				files.GET("/:id", fileHandler.GetFile)
				files.GET("/:id/url", fileHandler.GetDownloadURL)
				files.GET("/:id/download", fileHandler.DownloadFile)
				files.GET("/:id/path", fileHandler.GetPath)
				files.PUT("/:id", fileHandler.RenameFile)
				files.PUT("/:id/move", fileHandler.MoveFile)
				files.DELETE("/:id", fileHandler.DeleteFile)
			}

			protected.GET("/preview/:id", previewHandler.GetPreview)
			protected.GET("/storage/usage", capacityHandler.GetUsage)

			meds := protected.Group("/medications")
			{
				meds.GET("", medicationHandler.List)
				meds.POST("", medicationHandler.Create)
				meds.GET("/:id", medicationHandler.Get)
				meds.PUT("/:id", medicationHandler.Update)
				meds.DELETE("/:id", medicationHandler.Delete)
				meds.POST("/:id/increment", medicationHandler.Increment)
			}

			appointments := protected.Group("/appointments")
			{
				appointments.GET("", appointmentHandler.List)
				appointments.POST("", appointmentHandler.Create)
				appointments.GET("/:id", appointmentHandler.Get)
				appointments.PUT("/:id", appointmentHandler.Update)
				appointments.DELETE("/:id", appointmentHandler.Delete)
			}
		}
	}

	return router
}
