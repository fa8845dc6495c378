package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"detailing-booking/internal/admin"
	"detailing-booking/internal/backend"
	"detailing-booking/internal/booking"
	"detailing-booking/internal/calendar"
	"detailing-booking/internal/model"
	"detailing-booking/internal/parse"
	"detailing-booking/internal/query"
	"detailing-booking/internal/session"
)

const sessionKey = "admin_session"

func (h *Handler) newSession(c *gin.Context) *session.Session {
	sess, err := session.New(h.backend, &cookieTokenStore{h: h, c: c},
		session.WithProfileCache(h.queries),
		session.WithLogger(h.log),
		session.WithClock(h.now),
	)
	if err != nil {
		// Only a nil backend or store fails, which NewHandler never passes.
		panic(err)
	}
	return sess
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// RequireAdmin resolves the admin session and applies the route guard to
// every dashboard route.
func (h *Handler) RequireAdmin(c *gin.Context) {
	sess := h.newSession(c)
	err := sess.Refresh(c.Request.Context())
	if errors.Is(err, backend.ErrUnavailable) {
		fail(c, http.StatusServiceUnavailable, "Unable to reach the server, please try again.")
		return
	}
	if to := session.Guard(sess.Admin(), sess.State() == session.Loading, c.Request.URL.Path); to != "" {
		failRedirect(c, http.StatusUnauthorized, "Please log in.", to)
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

type sessionResponse struct {
	State    string       `json:"state"`
	Admin    *model.Admin `json:"admin,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
}

// GetAdminSession handles GET /admin, the login route. A logged-in admin is
// sent on to the dashboard.
func (h *Handler) GetAdminSession(c *gin.Context) {
	sess := h.newSession(c)
	if err := sess.Refresh(c.Request.Context()); err != nil {
		h.log.Debug("admin session not resolved", zap.Error(err))
	}
	respond(c, http.StatusOK, sessionResponse{
		State:    sess.State().String(),
		Admin:    publicAdmin(sess.Admin()),
		Redirect: session.Guard(sess.Admin(), false, session.LoginPath),
	})
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var creds model.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "Please enter your account and password.")
		return
	}
	res := h.newSession(c).LogIn(c.Request.Context(), creds)
	if res.Redirect == "" {
		fail(c, http.StatusUnauthorized, res.Message)
		return
	}
	h.log.Info("admin logged in", zap.String("account", creds.ID))
	respond(c, http.StatusOK, res)
}

// Logout handles POST /admin/logout. Dropping the table closes it.
func (h *Handler) Logout(c *gin.Context) {
	sess := h.newSession(c)
	if token, ok := sess.Token(); ok {
		h.tables.Delete(token)
	}
	respond(c, http.StatusOK, redirectHint{Redirect: sess.LogOut()})
}

func publicAdmin(a *model.Admin) *model.Admin {
	if a == nil {
		return nil
	}
	out := *a
	out.Password = ""
	return &out
}

// adminFailure is backendFailure for dashboard calls: a rejected token ends
// the session.
func (h *Handler) adminFailure(c *gin.Context, err error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		currentSession(c).LogOut()
		failRedirect(c, http.StatusUnauthorized, "Your session has expired, please log in again.", session.LoginPath)
		return
	}
	h.backendFailure(c, err, "")
}

// table returns the booking table of the logged-in admin. Tables are kept
// per token so sort and search survive between requests.
func (h *Handler) table(c *gin.Context) *admin.Table {
	sess := currentSession(c)
	token, _ := sess.Token()
	if v, found := h.tables.Get(token); found {
		h.tables.SetDefault(token, v)
		return v.(*admin.Table)
	}
	t := admin.NewTable(h.backend, h.queries, token, sess.Admin().ID, h.booking.SearchDebounce())
	h.tables.SetDefault(token, t)
	return t
}

type bookingRow struct {
	model.Booking
	ScheduledAt string                `json:"scheduled_at,omitempty"`
	Actions     map[admin.Action]bool `json:"actions"`
}

type bookingsResponse struct {
	Bookings   []bookingRow `json:"bookings"`
	Total      int          `json:"total"`
	Search     string       `json:"search"`
	Descending bool         `json:"descending"`
}

func (h *Handler) renderTable(t *admin.Table) bookingsResponse {
	rows := t.Rows()
	out := bookingsResponse{
		Bookings:   make([]bookingRow, 0, len(rows)),
		Total:      t.Total(),
		Search:     t.Search(),
		Descending: t.Descending(),
	}
	for _, b := range rows {
		row := bookingRow{Booking: b, Actions: make(map[admin.Action]bool, len(admin.Actions))}
		if at, err := b.ScheduledAt(h.booking.Location); err == nil {
			row.ScheduledAt = at.Format(time.RFC3339)
		}
		for _, a := range admin.Actions {
			row.Actions[a] = admin.ActionEnabled(b, a)
		}
		out.Bookings = append(out.Bookings, row)
	}
	return out
}

// GetBookings handles GET /admin/dashboard/bookings. Filters go to the
// backend; q is matched locally; sort is asc or desc and sticks between
// requests.
func (h *Handler) GetBookings(c *gin.Context) {
	var f admin.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		fail(c, http.StatusBadRequest, "Invalid filter.")
		return
	}
	if f.Count <= 0 {
		f.Count = h.booking.PageSize
	}

	t := h.table(c)
	if err := t.SetFilter(f); err != nil {
		fail(c, http.StatusBadRequest, "Unknown booking status.")
		return
	}
	switch c.Query("sort") {
	case "asc":
		t.SetDescending(false)
	case "desc":
		t.SetDescending(true)
	}
	t.SetSearch(c.Query("q"))

	if err := t.Load(c.Request.Context()); err != nil {
		h.adminFailure(c, err)
		return
	}
	respond(c, http.StatusOK, h.renderTable(t))
}

// ApplyBookingAction handles POST /admin/dashboard/bookings/:id/:action.
func (h *Handler) ApplyBookingAction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	action, err := admin.ParseAction(c.Param("action"))
	if err != nil {
		fail(c, http.StatusNotFound, "Unknown action.")
		return
	}

	t := h.table(c)
	ctx := c.Request.Context()
	if t.Key() == "" {
		if err := t.Load(ctx); err != nil {
			h.adminFailure(c, err)
			return
		}
	}

	switch err := t.Apply(ctx, id, action); {
	case err == nil:
		h.log.Info("booking status changed", zap.Int64("booking_id", id), zap.String("status", string(action.Target())))
		respond(c, http.StatusOK, h.renderTable(t))
	case errors.Is(err, admin.ErrUnknownBooking):
		fail(c, http.StatusNotFound, "Booking not found in the current list.")
	case errors.Is(err, admin.ErrActionDisabled):
		fail(c, http.StatusConflict, "The booking already has that status.")
	default:
		h.adminFailure(c, err)
	}
}

// UpdateBooking handles PATCH /admin/dashboard/bookings/:id, the full edit.
func (h *Handler) UpdateBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := booking.FieldErrors(err); fields != nil {
			failWith(c, http.StatusBadRequest, "Invalid booking.", gin.H{"fields": fields})
			return
		}
		fail(c, http.StatusBadRequest, "Invalid booking.")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		fail(c, http.StatusBadRequest, "Unknown booking status.")
		return
	}
	if req.Time != nil {
		if _, err := time.Parse(model.BookingTimeLayout, *req.Time); err != nil {
			fail(c, http.StatusBadRequest, "Time must look like 2006-01-02 15:04:05.")
			return
		}
	}

	ctx := c.Request.Context()
	token, _ := currentSession(c).Token()
	if err := h.backend.UpdateBooking(ctx, token, id, req); err != nil {
		h.adminFailure(c, err)
		return
	}
	h.queries.Invalidate(query.Key("booking", id))

	t := h.table(c)
	if err := t.Reload(ctx); err != nil {
		h.adminFailure(c, err)
		return
	}
	respond(c, http.StatusOK, h.renderTable(t))
}

type scheduleResponse struct {
	Calendar calendar.Month `json:"calendar"`
	Bookings int            `json:"bookings"`
}

// GetSchedule handles GET /admin/dashboard/schedule?month=YYYY-MM.
func (h *Handler) GetSchedule(c *gin.Context) {
	loc := h.booking.Location
	month := c.DefaultQuery("month", h.now().In(loc).Format(parse.MonthLayout))
	from, to, err := admin.MonthRange(month, loc)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid month.")
		return
	}

	sess := currentSession(c)
	token, _ := sess.Token()
	f := admin.Filter{From: from, To: to}
	page, err := query.Get(c.Request.Context(), h.queries, f.Key(sess.Admin().ID), func(ctx context.Context) (*backend.BookingPage, error) {
		return h.backend.AdminBookings(ctx, token, f.Values())
	})
	if err != nil {
		h.adminFailure(c, err)
		return
	}

	cal, err := admin.RenderSchedule(page.Bookings, month, loc, h.booking.ScheduleMaxBadges, h.now)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid month.")
		return
	}
	respond(c, http.StatusOK, scheduleResponse{Calendar: cal, Bookings: len(page.Bookings)})
}

// GetAccount handles GET /admin/dashboard/account.
func (h *Handler) GetAccount(c *gin.Context) {
	respond(c, http.StatusOK, publicAdmin(currentSession(c).Admin()))
}

type accountBody struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// UpdateAccount handles PATCH /admin/dashboard/account. Empty fields are left
// unchanged.
func (h *Handler) UpdateAccount(c *gin.Context) {
	var body accountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid account details.")
		return
	}
	sess := currentSession(c)
	updated := *sess.Admin()
	if v := strings.TrimSpace(body.Account); v != "" {
		updated.Account = v
	}
	updated.Password = body.Password

	token, _ := sess.Token()
	out, err := h.backend.UpdateMe(c.Request.Context(), token, updated)
	if err != nil {
		h.adminFailure(c, err)
		return
	}
	sess.ForgetProfile()
	respond(c, http.StatusOK, publicAdmin(out))
}

// UpdateLocation handles PATCH /admin/dashboard/location, a full replacement
// of the admin's own location.
func (h *Handler) UpdateLocation(c *gin.Context) {
	var loc model.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		fail(c, http.StatusBadRequest, "Invalid location.")
		return
	}
	if strings.TrimSpace(loc.City) == "" || strings.TrimSpace(loc.Branch) == "" || strings.TrimSpace(loc.Address) == "" {
		fail(c, http.StatusBadRequest, "City, branch and address are required.")
		return
	}
	open, errOpen := parse.SlotTime(loc.OpenTime, h.now())
	closing, errClose := parse.SlotTime(loc.CloseTime, h.now())
	if errOpen != nil || errClose != nil || !open.Before(closing) {
		fail(c, http.StatusBadRequest, "Opening hours must be HH:MM and open before closing.")
		return
	}

	sess := currentSession(c)
	loc.ID = sess.Admin().LocationID
	token, _ := sess.Token()
	if err := h.backend.UpdateLocation(c.Request.Context(), token, loc); err != nil {
		h.adminFailure(c, err)
		return
	}

	h.queries.Invalidate(query.Key("locations"))
	h.queries.Invalidate(query.Key("location", loc.ID))
	h.responses.Flush()
	respond(c, http.StatusOK, loc)
}
