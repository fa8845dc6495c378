package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"detailing-booking/internal/model"
	"detailing-booking/internal/query"
)

const bookingHome = "/booking"

func serviceListPath(locationID int64) string {
	return fmt.Sprintf("/booking/locations/%d/services", locationID)
}

func (h *Handler) locations(ctx context.Context) ([]model.Location, error) {
	return query.Get(ctx, h.queries, query.Key("locations"), h.backend.ListLocations)
}

func (h *Handler) location(ctx context.Context, id int64) (*model.Location, error) {
	return query.Get(ctx, h.queries, query.Key("location", id), func(ctx context.Context) (*model.Location, error) {
		return h.backend.GetLocation(ctx, id)
	})
}

func (h *Handler) services(ctx context.Context) ([]model.Service, error) {
	return query.Get(ctx, h.queries, query.Key("services"), h.backend.ListServices)
}

func (h *Handler) service(ctx context.Context, id int64) (*model.Service, error) {
	return query.Get(ctx, h.queries, query.Key("service", id), func(ctx context.Context) (*model.Service, error) {
		return h.backend.GetService(ctx, id)
	})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name+".")
		return 0, false
	}
	return id, true
}

// GetLocations handles GET /booking/locations.
func (h *Handler) GetLocations(c *gin.Context) {
	list, err := h.locations(c.Request.Context())
	if err != nil {
		h.backendFailure(c, err, "")
		return
	}
	respond(c, http.StatusOK, list)
}

type serviceListResponse struct {
	Location *model.Location `json:"location"`
	Services []model.Service `json:"services"`
}

// GetLocationServices handles GET /booking/locations/:id/services. An unknown
// location sends the customer back to the location list.
func (h *Handler) GetLocationServices(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	loc, err := h.location(ctx, id)
	if err != nil {
		h.backendFailure(c, err, bookingHome)
		return
	}
	list, err := h.services(ctx)
	if err != nil {
		h.backendFailure(c, err, "")
		return
	}
	respond(c, http.StatusOK, serviceListResponse{Location: loc, Services: list})
}

// GetService handles GET /booking/services/:id. A missing service redirects
// to the location-scoped service list when ?location_id is known.
func (h *Handler) GetService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	fallback := bookingHome
	if locID, err := strconv.ParseInt(c.Query("location_id"), 10, 64); err == nil && locID > 0 {
		fallback = serviceListPath(locID)
	}

	svc, err := h.service(c.Request.Context(), id)
	if err != nil {
		h.backendFailure(c, err, fallback)
		return
	}
	respond(c, http.StatusOK, svc)
}

// GetConfirmation handles GET /booking/confirm/:bookingId.
func (h *Handler) GetConfirmation(c *gin.Context) {
	id, ok := paramID(c, "bookingId")
	if !ok {
		return
	}
	b, err := query.Get(c.Request.Context(), h.queries, query.Key("booking", id), func(ctx context.Context) (*model.Booking, error) {
		return h.backend.GetBooking(ctx, id)
	})
	if err != nil {
		h.backendFailure(c, err, bookingHome)
		return
	}
	respond(c, http.StatusOK, b)
}
