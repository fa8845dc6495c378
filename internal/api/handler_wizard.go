package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"detailing-booking/internal/booking"
	"detailing-booking/internal/calendar"
	"detailing-booking/internal/model"
	"detailing-booking/internal/parse"
	"detailing-booking/internal/query"
	"detailing-booking/internal/slots"
	"detailing-booking/internal/store"
	"detailing-booking/internal/wizard"
)

type wizardResponse struct {
	ID        string           `json:"id"`
	Step      wizard.Step      `json:"step"`
	Steps     []wizard.Step    `json:"steps"`
	Selection wizard.Selection `json:"selection"`
	Complete  bool             `json:"complete"`
	BookingID *int64           `json:"booking_id,omitempty"`
	Redirect  string           `json:"redirect,omitempty"`
}

func newWizardResponse(id string, w *wizard.Wizard, bookingID *int64) wizardResponse {
	out := wizardResponse{
		ID:        id,
		Step:      w.Current(),
		Steps:     wizard.Steps,
		Selection: w.Selection(),
		Complete:  w.Complete(),
		BookingID: bookingID,
	}
	if bookingID != nil {
		out.Redirect = booking.ConfirmPath(*bookingID)
	}
	return out
}

// loadWizard restores the wizard named by the request cookie. It writes the
// error response itself and returns false when there is none.
func (h *Handler) loadWizard(c *gin.Context) (string, *wizard.Wizard, *model.WizardSession, bool) {
	id, err := c.Cookie(WizardCookie)
	if err != nil || id == "" {
		failRedirect(c, http.StatusNotFound, "No booking in progress.", bookingHome)
		return "", nil, nil, false
	}
	row, err := h.store.GetSession(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.setCookie(c, WizardCookie, "", -1)
		failRedirect(c, http.StatusNotFound, "Your booking session has expired, please start again.", bookingHome)
		return "", nil, nil, false
	}
	if err != nil {
		h.log.Error("failed to load wizard session", zap.String("session_id", id), zap.Error(err))
		fail(c, http.StatusInternalServerError, booking.FallbackMessage)
		return "", nil, nil, false
	}
	return id, wizard.Restore(*row), row, true
}

func (h *Handler) saveWizard(c *gin.Context, id string, w *wizard.Wizard) bool {
	if err := h.store.SaveSession(c.Request.Context(), w.Snapshot(id)); err != nil {
		h.log.Error("failed to save wizard session", zap.String("session_id", id), zap.Error(err))
		fail(c, http.StatusInternalServerError, booking.FallbackMessage)
		return false
	}
	return true
}

// StartWizard handles POST /booking/session. An unfinished session from the
// cookie is resumed unless ?restart=true.
func (h *Handler) StartWizard(c *gin.Context) {
	if c.Query("restart") != "true" {
		if id, err := c.Cookie(WizardCookie); err == nil && id != "" {
			row, err := h.store.GetSession(c.Request.Context(), id)
			if err == nil && row.BookingID == nil {
				respond(c, http.StatusOK, newWizardResponse(id, wizard.Restore(*row), nil))
				return
			}
		}
	}

	id := uuid.NewString()
	w := wizard.New()
	if !h.saveWizard(c, id, w) {
		return
	}
	h.setCookie(c, WizardCookie, id, int(h.booking.Retention().Seconds()))
	h.log.Debug("wizard session started", zap.String("session_id", id))
	respond(c, http.StatusCreated, newWizardResponse(id, w, nil))
}

// GetWizard handles GET /booking/session.
func (h *Handler) GetWizard(c *gin.Context) {
	id, w, row, ok := h.loadWizard(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, newWizardResponse(id, w, row.BookingID))
}

type idBody struct {
	ID int64 `json:"id" binding:"required"`
}

type timeBody struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
	Time string `json:"time" binding:"required"` // HH:MM:SS
}

// PutWizardStep handles PUT /booking/session/:step: it stores the step's
// value and moves one step forward. Editing an earlier step continues from
// that step.
func (h *Handler) PutWizardStep(c *gin.Context) {
	step, err := wizard.ParseStep(c.Param("step"))
	if err != nil {
		fail(c, http.StatusNotFound, "Unknown step.")
		return
	}
	id, w, row, ok := h.loadWizard(c)
	if !ok {
		return
	}
	if row.BookingID != nil {
		failRedirect(c, http.StatusConflict, "This booking was already submitted.", booking.ConfirmPath(*row.BookingID))
		return
	}
	if !w.ToStep(step) {
		fail(c, http.StatusConflict, "Please complete the previous steps first.")
		return
	}

	value, ok := h.stepValue(c, id, step, w.Selection())
	if !ok {
		return
	}
	if err := w.SetBookingData(step, value); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.NextStep()

	if !h.saveWizard(c, id, w) {
		return
	}
	respond(c, http.StatusOK, newWizardResponse(id, w, nil))
}

func (h *Handler) stepValue(c *gin.Context, id string, step wizard.Step, sel wizard.Selection) (any, bool) {
	ctx := c.Request.Context()
	switch step {
	case wizard.StepLocation:
		var body idBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Please choose a location.")
			return nil, false
		}
		loc, err := h.location(ctx, body.ID)
		if err != nil {
			h.backendFailure(c, err, bookingHome)
			return nil, false
		}
		return loc, true

	case wizard.StepService:
		var body idBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Please choose a service.")
			return nil, false
		}
		svc, err := h.service(ctx, body.ID)
		if err != nil {
			h.backendFailure(c, err, serviceListPath(sel.Location.ID))
			return nil, false
		}
		return svc, true

	case wizard.StepTime:
		var body timeBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "Please choose a date and time.")
			return nil, false
		}
		t, ok := h.pickSlot(c, id, sel, body)
		return t, ok

	case wizard.StepInfo:
		var info model.Info
		err := c.ShouldBindJSON(&info)
		fields := booking.FieldErrors(err)
		if err == nil {
			fields = booking.ValidateInfo(info)
		}
		if fields != nil {
			failWith(c, http.StatusUnprocessableEntity, "Please check your contact details.", gin.H{"fields": fields})
			return nil, false
		}
		if err != nil {
			fail(c, http.StatusBadRequest, "Please enter your contact details.")
			return nil, false
		}
		return booking.TrimInfo(info), true
	}
	fail(c, http.StatusNotFound, "Unknown step.")
	return nil, false
}

// pickSlot checks the requested time against the slots on offer right now,
// not a cached list.
func (h *Handler) pickSlot(c *gin.Context, id string, sel wizard.Selection, body timeBody) (any, bool) {
	day, err := parse.Date(body.Date, h.booking.Location)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid date.")
		return nil, false
	}

	selector := h.selectors.Get(id)
	selector.SetLocation(sel.Location.ID)
	selector.SetService(sel.Service.ID)
	if err := selector.SetDate(day); err != nil {
		if errors.Is(err, calendar.ErrDateDisabled) {
			fail(c, http.StatusUnprocessableEntity, "That day is in the past.")
			return nil, false
		}
		fail(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err := selector.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, query.ErrStale) {
			fail(c, http.StatusConflict, "A newer request replaced this one.")
			return nil, false
		}
		h.log.Warn("failed to load slots", zap.String("session_id", id), zap.Error(err))
		fail(c, http.StatusBadGateway, slots.MsgLoadFailed)
		return nil, false
	}
	t, err := selector.Select(body.Time)
	if err != nil {
		fail(c, http.StatusConflict, "That time is no longer available, please pick another.")
		return nil, false
	}
	return t, true
}

// PrevWizardStep handles POST /booking/session/prev.
func (h *Handler) PrevWizardStep(c *gin.Context) {
	id, w, _, ok := h.loadWizard(c)
	if !ok {
		return
	}
	if w.PrevStep() && !h.saveWizard(c, id, w) {
		return
	}
	respond(c, http.StatusOK, newWizardResponse(id, w, nil))
}

// GotoWizardStep handles POST /booking/session/goto/:step. Only steps already
// reached can be revisited.
func (h *Handler) GotoWizardStep(c *gin.Context) {
	step, err := wizard.ParseStep(c.Param("step"))
	if err != nil {
		fail(c, http.StatusNotFound, "Unknown step.")
		return
	}
	id, w, _, ok := h.loadWizard(c)
	if !ok {
		return
	}
	if !w.ToStep(step) {
		fail(c, http.StatusConflict, "Please complete the previous steps first.")
		return
	}
	if !h.saveWizard(c, id, w) {
		return
	}
	respond(c, http.StatusOK, newWizardResponse(id, w, nil))
}

// SubmitWizard handles POST /booking/session/submit. The backend is called
// exactly once; on failure the wizard stays on the info step.
func (h *Handler) SubmitWizard(c *gin.Context) {
	id, w, row, ok := h.loadWizard(c)
	if !ok {
		return
	}
	if row.BookingID != nil {
		failRedirect(c, http.StatusConflict, "This booking was already submitted.", booking.ConfirmPath(*row.BookingID))
		return
	}
	if w.Current() != wizard.StepInfo || !w.Complete() {
		fail(c, http.StatusUnprocessableEntity, "Please complete every step before submitting.")
		return
	}

	res := h.submitter.Submit(c.Request.Context(), w.Selection())
	if !res.OK() {
		if res.Fields != nil {
			failWith(c, http.StatusUnprocessableEntity, res.Message, gin.H{"fields": res.Fields})
			return
		}
		fail(c, http.StatusBadGateway, res.Message)
		return
	}

	if err := h.store.MarkSubmitted(c.Request.Context(), id, res.BookingID); err != nil {
		h.log.Error("failed to record submitted booking", zap.String("session_id", id), zap.Int64("booking_id", res.BookingID), zap.Error(err))
	}
	sel := w.Selection()
	h.queries.Invalidate(slots.CacheKey(sel.Time.In(h.booking.Location), sel.Location.ID, sel.Service.ID))
	h.selectors.Drop(id)
	h.tracker.Forget(id)
	respond(c, http.StatusCreated, res)
}
