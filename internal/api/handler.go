package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"detailing-booking/config"
	"detailing-booking/internal/admin"
	"detailing-booking/internal/backend"
	"detailing-booking/internal/booking"
	"detailing-booking/internal/metrics"
	"detailing-booking/internal/query"
	"detailing-booking/internal/slots"
	"detailing-booking/internal/store"
)

var registerValidations sync.Once

// Handler holds shared dependencies for API handlers.
type Handler struct {
	backend   *backend.Client
	store     store.Store
	queries   *query.Cache
	tracker   *query.Tracker
	selectors *slots.Registry
	tables    *cache.Cache
	responses *cache.Cache
	submitter *booking.Submitter
	metrics   *metrics.BackendMetrics

	booking config.BookingConfig
	secure  bool
	log     *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, client *backend.Client, s store.Store, m *metrics.BackendMetrics, log *zap.Logger) *Handler {
	registerValidations.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			booking.RegisterValidations(v)
		}
	})
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	h := &Handler{
		backend:   client,
		store:     s,
		queries:   query.New(cacheTTL),
		tracker:   query.NewTracker(),
		tables:    cache.New(cfg.Booking.SessionTTL(), 2*cfg.Booking.SessionTTL()),
		responses: cache.New(cacheTTL, 2*cacheTTL),
		submitter: booking.NewSubmitter(client, cfg.Booking.Location, log),
		metrics:   m,
		booking:   cfg.Booking,
		secure:    cfg.Server.SecureCookies,
		log:       log,
		now:       time.Now,
	}
	h.tables.OnEvicted(func(_ string, v any) {
		v.(*admin.Table).Close()
	})
	h.selectors = slots.NewRegistry(cfg.Booking.SessionTTL(), h.newSelector)
	return h
}

func (h *Handler) newSelector(scope string) *slots.Selector {
	return slots.NewSelector(h.backend, h.queries, h.tracker, slots.Options{
		Scope:    scope,
		Location: h.booking.Location,
		Clock24h: h.booking.Clock24h,
		Now:      h.now,
		Metrics:  h.metrics,
	})
}

// envelope mirrors the backend's response shape so clients decode both alike.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Message *string `json:"message"`
}

type redirectHint struct {
	Redirect string `json:"redirect"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Message: &message})
}

func failWith(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, envelope{Data: data, Message: &message})
}

func failRedirect(c *gin.Context, status int, message, to string) {
	failWith(c, status, message, redirectHint{Redirect: to})
}

// backendFailure maps a failed backend call to a response. Not-found goes to
// fallback when one is given.
func (h *Handler) backendFailure(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, backend.ErrNotFound) && fallback != "":
		failRedirect(c, http.StatusNotFound, backend.Message(err, "Not found."), fallback)
	case errors.Is(err, backend.ErrNotFound):
		fail(c, http.StatusNotFound, backend.Message(err, "Not found."))
	case errors.Is(err, backend.ErrUnavailable):
		h.log.Warn("backend unavailable", zap.String("path", c.Request.URL.Path), zap.Error(err))
		fail(c, http.StatusBadGateway, booking.FallbackMessage)
	case errors.Is(err, query.ErrStale):
		fail(c, http.StatusConflict, "A newer request replaced this one.")
	default:
		h.log.Warn("backend call failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		fail(c, http.StatusBadGateway, backend.Message(err, booking.FallbackMessage))
	}
}
