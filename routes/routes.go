package routes

import (
	"net/http"
	"time"

	"fastaid/handlers"
	"fastaid/metrics"
	"fastaid/middleware"
	"fastaid/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRequesterRoutes registers requester enrolment and profile endpoints.
func RegisterRequesterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/requesters")
	{
		api.POST("", hb.Fleet.RegisterRequester)

		protected := api.Group("", middleware.JWTAuthMiddleware())
		protected.GET("/:id", hb.Fleet.GetRequester)
		protected.PUT("/:id/location", hb.Fleet.UpdateRequesterLocation)
	}
}

// RegisterResourceRoutes registers resource enrolment, lookup and queue endpoints.
func RegisterResourceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/resources")
	{
		api.POST("", hb.Fleet.RegisterResource)

		protected := api.Group("", middleware.JWTAuthMiddleware())
		protected.GET("/nearby", hb.Fleet.NearbyResources)
		protected.GET("/:id", hb.Fleet.GetResource)
		protected.PUT("/:id/location", hb.Fleet.UpdateResourceLocation)
		protected.GET("/:id/queue", hb.Booking.ResourceQueue)
	}
}

// RegisterBookingRoutes registers the booking lifecycle and its payment endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	requesterOnly := middleware.RequireRole(utils.RoleRequester)
	operatorOnly := middleware.RequireRole(utils.RoleOperator)

	api := r.Group("/api/bookings", middleware.JWTAuthMiddleware())
	{
		api.POST("", requesterOnly, hb.Booking.CreateBooking)
		api.GET("", requesterOnly, hb.Booking.ListMyBookings)
		api.GET("/:id", hb.Booking.GetBooking)
		api.POST("/:id/accept", operatorOnly, hb.Booking.AcceptBooking)
		api.POST("/:id/complete", operatorOnly, hb.Booking.CompleteBooking)
		api.POST("/:id/reject", hb.Booking.RejectBooking)
		api.POST("/:id/cancel", hb.Booking.CancelBooking)
		api.POST("/:id/payment", hb.Payment.CreateOrder)
		api.POST("/:id/payment/outcome", hb.Payment.ConfirmOutcome)
	}
}

// RegisterPaymentRoutes registers the gateway callback. It authenticates by
// signature, not bearer token.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/payments/webhook", hb.Payment.StripeWebhook)
}

// RegisterInfoRoutes registers route preview, dashboard stats and the change stream.
func RegisterInfoRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api", middleware.JWTAuthMiddleware())
	{
		api.GET("/routes", hb.Directions.GetRoute)
		api.GET("/stats", hb.Stats.GetStats)
		api.GET("/changes/stream", hb.Stream.ChangeStream)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin", middleware.JWTAuthMiddleware(), middleware.RequireRole(utils.RoleAdmin))
	{
		adminGroup.PUT("/resources/:id/verify", hb.Admin.VerifyResource)
		adminGroup.PUT("/resources/:id/availability", hb.Admin.SetAvailability)
		adminGroup.GET("/resources/:id/availability", hb.Admin.GetAvailability)
	}
}

// RegisterHealthRoute registers the health check and the metrics endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "Hi, I'm FastAid"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterRequesterRoutes(r, hb)
	RegisterResourceRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterInfoRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
