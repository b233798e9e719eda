package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/calendar"
	"interview-scheduler/internal/store"
)

// App holds the dependencies shared by every handler.
type App struct {
	Bookings *booking.Service
	Jobs     store.JobStore
	// Calendar is nil when the Google integration is not configured.
	Calendar    *calendar.Client
	AdminSecret []byte
	Logger      *slog.Logger
}

// Router builds the gin engine with every route registered.
func (a *App) Router() *gin.Engine {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(a.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// OAuth2 callback (must be outside the admin group, Google cannot send the bearer token)
	r.GET("/oauth2callback", a.CalendarCallbackHandler)

	api := r.Group("/api")
	{
		api.GET("/config", a.GetConfigHandler)
		api.GET("/slots", a.GetSlotsHandler)
		api.POST("/bookings", a.CreateBookingHandler)
		api.POST("/final-round/verify", a.VerifyFinalRoundHandler)
		api.GET("/jobs", a.ListPublishedJobsHandler)
		api.GET("/jobs/:id", a.GetPublishedJobHandler)
		api.POST("/admin/login", a.LoginHandler)
	}

	admin := api.Group("/admin", a.AdminAuth())
	{
		admin.GET("/slots", a.AdminSlotsHandler)

		bookings := admin.Group("/bookings")
		{
			bookings.GET("", a.ListBookingsHandler)
			bookings.POST("", a.ManualBookingHandler)
			bookings.DELETE("/:date/:slotId", a.CancelBookingHandler)
			bookings.POST("/:date/:slotId/reschedule", a.RescheduleHandler)
			bookings.PATCH("/:date/:slotId/final-round", a.FinalRoundEligibilityHandler)
		}

		blocks := admin.Group("/blocks")
		{
			blocks.POST("/slots/:date/:slotId", a.BlockSlotHandler)
			blocks.DELETE("/slots/:date/:slotId", a.UnblockSlotHandler)
			blocks.POST("/days/:date", a.BlockDayHandler)
			blocks.DELETE("/days/:date", a.UnblockDayHandler)
		}

		admin.GET("/config", a.GetConfigHandler)
		admin.PUT("/config", a.UpdateConfigHandler)

		cal := admin.Group("/calendar")
		{
			cal.GET("/status", a.CalendarStatusHandler)
			cal.GET("/connect", a.CalendarConnectHandler)
			cal.GET("/events", a.CalendarEventsHandler)
			cal.DELETE("", a.CalendarDisconnectHandler)
		}

		jobs := admin.Group("/jobs")
		{
			jobs.GET("", a.ListJobsHandler)
			jobs.POST("", a.CreateJobHandler)
			jobs.PUT("/:id", a.UpdateJobHandler)
			jobs.DELETE("/:id", a.DeleteJobHandler)
		}
	}

	return r
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// respondError writes the rejection body and logs the hidden cause of
// internal errors.
func (a *App) respondError(c *gin.Context, err error) {
	status := apperror.StatusOf(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperror.PublicMessage(err),
		"code":  apperror.CodeOf(err),
	})
}

// bindJSON decodes the request body, mapping decode errors to a validation
// rejection.
func (a *App) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		a.respondError(c, apperror.Validation("invalid request body"))
		return false
	}
	return true
}
