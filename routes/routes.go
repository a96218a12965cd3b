package routes

import (
	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/handlers"
	"github.com/Cue77/medilink/middleware"
	"github.com/Cue77/medilink/models"
	"github.com/Cue77/medilink/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	supa "github.com/supabase-community/supabase-go"
)

func SetupRoutes(router *gin.Engine, supabaseClient *supa.Client, cfg *config.Config, log zerolog.Logger) {
	store := services.NewSupabaseStore(supabaseClient)
	threads := services.NewThreadService(store, log)
	machine := services.NewStatusMachine(store)
	attachments := services.NewAttachmentService(supabaseClient.Storage, cfg.AttachmentBucket)
	feed := services.NewFeedClient(cfg, log)
	hub := services.NewNoticeHub()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(store, machine, cfg)
	messageHandler := handlers.NewMessageHandler(threads, attachments, cfg)
	contactHandler := handlers.NewContactHandler(threads, cfg)
	notificationHandler := handlers.NewNotificationHandler(store, feed, hub, cfg, log)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"success": true,
			"message": "Server is running",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			// User profile
			protected.GET("/auth/me", authHandler.GetMe)

			// Patient appointments
			appointments := protected.Group("/appointments")
			{
				appointments.GET("", appointmentHandler.GetMyAppointments)
				appointments.POST("", appointmentHandler.BookAppointment)
				appointments.PUT("/:id/reschedule", appointmentHandler.RescheduleAppointment)
				appointments.DELETE("/:id", appointmentHandler.CancelAppointment)
			}

			// Doctor routes
			doctor := protected.Group("/doctor")
			doctor.Use(middleware.RoleMiddleware(models.RoleDoctor))
			{
				doctor.GET("/appointments", appointmentHandler.GetDoctorAppointments)
				doctor.POST("/appointments/:id/status", appointmentHandler.UpdateStatus)
			}

			// Messaging
			messages := protected.Group("/messages")
			{
				messages.GET("", messageHandler.GetThread)
				messages.POST("", messageHandler.SendMessage)
				messages.POST("/attachments", messageHandler.UploadAttachment)
			}

			protected.GET("/contacts", contactHandler.GetContacts)

			// Notification stream (SSE)
			protected.GET("/notifications/stream", notificationHandler.Stream)
		}
	}
}
