package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"detailing-booking/internal/calendar"
	"detailing-booking/internal/parse"
	"detailing-booking/internal/query"
	"detailing-booking/internal/wizard"
)

// GetCalendar handles GET /booking/calendar?month=YYYY-MM&selected=YYYY-MM-DD.
func (h *Handler) GetCalendar(c *gin.Context) {
	opts := []calendar.Option{calendar.WithNow(h.now)}
	if raw := c.Query("selected"); raw != "" {
		day, err := parse.Date(raw, h.booking.Location)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid selected date.")
			return
		}
		opts = append(opts, calendar.WithValue(day))
	}

	view := calendar.NewView(h.booking.Location, opts...)
	if month := c.Query("month"); month != "" {
		if err := view.JumpTo(month); err != nil {
			fail(c, http.StatusBadRequest, "Invalid month.")
			return
		}
	}
	respond(c, http.StatusOK, view.Render())
}

func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name+".")
		return 0, false
	}
	return id, true
}

// pickerID returns the visitor's picker id, issuing a new one on first use.
func (h *Handler) pickerID(c *gin.Context) string {
	if id, err := c.Cookie(PickerCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	h.setCookie(c, PickerCookie, id, int(h.booking.SessionTTL().Seconds()))
	return id
}

// GetSlots handles GET /booking/slots?date&location_id&service_id&month. The
// picker is kept per wizard session, or per visitor cookie without one;
// location and service default to the wizard's selection.
func (h *Handler) GetSlots(c *gin.Context) {
	locationID, ok := queryID(c, "location_id")
	if !ok {
		return
	}
	serviceID, ok := queryID(c, "service_id")
	if !ok {
		return
	}

	var scope string
	if id, err := c.Cookie(WizardCookie); err == nil && id != "" {
		scope = id
		if row, err := h.store.GetSession(c.Request.Context(), id); err == nil {
			sel := wizard.Restore(*row).Selection()
			if locationID == 0 && sel.Location != nil {
				locationID = sel.Location.ID
			}
			if serviceID == 0 && sel.Service != nil {
				serviceID = sel.Service.ID
			}
		}
	}

	if scope == "" {
		scope = "anon|" + h.pickerID(c)
	}

	selector := h.selectors.Get(scope)
	if locationID > 0 {
		selector.SetLocation(locationID)
	}
	if serviceID > 0 {
		selector.SetService(serviceID)
	}
	if raw := c.Query("date"); raw != "" {
		day, err := parse.Date(raw, h.booking.Location)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid date.")
			return
		}
		if err := selector.SetDate(day); err != nil {
			fail(c, http.StatusUnprocessableEntity, "That day is in the past.")
			return
		}
	}
	if month := c.Query("month"); month != "" {
		if err := selector.JumpTo(month); err != nil {
			fail(c, http.StatusBadRequest, "Invalid month.")
			return
		}
	}

	// A failed load is reported through the view's empty-state message.
	if err := selector.Load(c.Request.Context()); err != nil && !errors.Is(err, query.ErrStale) {
		h.log.Warn("failed to load slots", zap.String("scope", scope), zap.Error(err))
	}
	respond(c, http.StatusOK, selector.View())
}
