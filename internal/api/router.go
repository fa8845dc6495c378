package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"detailing-booking/config"
	"detailing-booking/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Recovery(log), mw.RequestLogger(log))

	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", mw.RequestIDHeader},
			ExposeHeaders:    []string{mw.RequestIDHeader, mw.CacheHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, log)
	caching := mw.Cache(h.responses, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	b := r.Group("/booking")
	b.Use(rateLimiter)
	{
		b.GET("/locations", caching, h.GetLocations)
		b.GET("/locations/:id/services", caching, h.GetLocationServices)
		b.GET("/services/:id", caching, h.GetService)
		b.GET("/calendar", h.GetCalendar)
		b.GET("/slots", h.GetSlots)
		b.GET("/confirm/:bookingId", h.GetConfirmation)

		b.POST("/session", h.StartWizard)
		b.GET("/session", h.GetWizard)
		b.PUT("/session/:step", h.PutWizardStep)
		b.POST("/session/prev", h.PrevWizardStep)
		b.POST("/session/goto/:step", h.GotoWizardStep)
		b.POST("/session/submit", h.SubmitWizard)
	}

	a := r.Group("/admin")
	a.Use(rateLimiter)
	{
		a.GET("", h.GetAdminSession)
		a.POST("/login", h.Login)
		a.POST("/logout", h.Logout)

		d := a.Group("/dashboard")
		d.Use(h.RequireAdmin)
		d.GET("/bookings", h.GetBookings)
		d.POST("/bookings/:id/:action", h.ApplyBookingAction)
		d.PATCH("/bookings/:id", h.UpdateBooking)
		d.GET("/schedule", h.GetSchedule)
		d.GET("/account", h.GetAccount)
		d.PATCH("/account", h.UpdateAccount)
		d.PATCH("/location", h.UpdateLocation)
	}

	return r
}
