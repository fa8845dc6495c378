package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailing-booking/internal/booking"
	"detailing-booking/internal/model"
	"detailing-booking/internal/slots"
	"detailing-booking/internal/wizard"
)

func startWizard(t *testing.T, c *testClient) wizardResponse {
	t.Helper()
	w, resp := c.do(http.MethodPost, "/booking/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var state wizardResponse
	resp.decode(t, &state)
	require.Contains(t, c.cookies, WizardCookie)
	return state
}

func putStep(t *testing.T, c *testClient, step wizard.Step, body any) (int, apiResponse, wizardResponse) {
	t.Helper()
	w, resp := c.do(http.MethodPut, "/booking/session/"+string(step), body)
	var state wizardResponse
	if w.Code == http.StatusOK {
		resp.decode(t, &state)
	}
	return w.Code, resp, state
}

func TestWizard_FullBooking(t *testing.T) {
	fake := newFakeBackend()
	_, router := newTestServer(t, fake)
	c := newTestClient(t, router)

	state := startWizard(t, c)
	assert.Equal(t, wizard.StepLocation, state.Step)
	assert.False(t, state.Complete)

	code, _, state := putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepService, state.Step)
	assert.Equal(t, "Neihu", state.Selection.Location.Branch)

	code, _, state = putStep(t, c, wizard.StepService, jsonBody{"id": 2})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepTime, state.Step)

	code, _, state = putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "14:30:00"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepInfo, state.Step)

	code, resp, _ := putStep(t, c, wizard.StepInfo, jsonBody{"name": "Alice", "phone": "0912345678", "email": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	var invalid struct {
		Fields map[string]string `json:"fields"`
	}
	resp.decode(t, &invalid)
	assert.Contains(t, invalid.Fields, "email")

	code, resp, _ = putStep(t, c, wizard.StepInfo, jsonBody{"name": "Alice"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	invalid.Fields = nil
	resp.decode(t, &invalid)
	assert.Contains(t, invalid.Fields, "phone")
	assert.Contains(t, invalid.Fields, "email")

	code, _, state = putStep(t, c, wizard.StepInfo, jsonBody{"name": "Alice", "phone": "0912345678", "email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepInfo, state.Step, "info is the last step")
	assert.True(t, state.Complete)

	w, resp := c.do(http.MethodPost, "/booking/session/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, resp.message())
	var res booking.Result
	resp.decode(t, &res)
	assert.Equal(t, int64(42), res.BookingID)
	assert.Equal(t, "/booking/confirm/42", res.Redirect)

	require.Len(t, fake.created, 1)
	assert.Equal(t, model.CreateBookingRequest{
		LocationID: 1,
		ServiceID:  2,
		Time:       "2024-06-16 14:30:00",
		Info:       model.Info{Name: "Alice", Phone: "0912345678", Email: "alice@example.com"},
	}, fake.created[0])

	// A reload shows the finished booking.
	w, resp = c.do(http.MethodGet, "/booking/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp.decode(t, &state)
	require.NotNil(t, state.BookingID)
	assert.Equal(t, "/booking/confirm/42", state.Redirect)

	w, _ = c.do(http.MethodPost, "/booking/session/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, fake.created, 1)
}

// jsonBody is a shorthand for JSON request bodies.
type jsonBody map[string]any

func TestWizard_Navigation(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)
	startWizard(t, c)

	w, _ := c.do(http.MethodPost, "/booking/session/goto/time", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "future steps can not be jumped to")

	code, _, _ := putStep(t, c, wizard.StepService, jsonBody{"id": 2})
	assert.Equal(t, http.StatusConflict, code, "values for unreached steps are rejected")

	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, c, wizard.StepService, jsonBody{"id": 2})

	w, resp := c.do(http.MethodPost, "/booking/session/goto/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state wizardResponse
	resp.decode(t, &state)
	assert.Equal(t, wizard.StepLocation, state.Step)
	assert.NotNil(t, state.Selection.Service, "going back keeps later values")

	w, resp = c.do(http.MethodPost, "/booking/session/prev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp.decode(t, &state)
	assert.Equal(t, wizard.StepLocation, state.Step, "prev on the first step is a no-op")

	w, _ = c.do(http.MethodPost, "/booking/session/goto/payment", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizard_ResumeAndRestart(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)
	first := startWizard(t, c)
	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})

	w, resp := c.do(http.MethodPost, "/booking/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state wizardResponse
	resp.decode(t, &state)
	assert.Equal(t, first.ID, state.ID)
	assert.Equal(t, wizard.StepService, state.Step)

	w, resp = c.do(http.MethodPost, "/booking/session?restart=true", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp.decode(t, &state)
	assert.NotEqual(t, first.ID, state.ID)
	assert.Equal(t, wizard.StepLocation, state.Step)
}

func TestWizard_NoSession(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)

	w, resp := c.do(http.MethodGet, "/booking/session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/booking", resp.redirect(t))

	c.cookies[WizardCookie] = &http.Cookie{Name: WizardCookie, Value: "gone"}
	w, resp = c.do(http.MethodGet, "/booking/session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/booking", resp.redirect(t))
	assert.NotContains(t, c.cookies, WizardCookie)
}

func TestWizard_TimeMustBeOffered(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)
	startWizard(t, c)
	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, c, wizard.StepService, jsonBody{"id": 2})

	code, _, _ := putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "12:00:00"})
	assert.Equal(t, http.StatusConflict, code)

	code, _, _ = putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-14", "time": "10:00:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "past days are disabled")

	code, _, _ = putStep(t, c, wizard.StepTime, jsonBody{"date": "tomorrow", "time": "10:00:00"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWizard_ChangingLocationClearsTime(t *testing.T) {
	fake := newFakeBackend()
	fake.locations[3] = model.Location{ID: 3, City: "Taipei", Branch: "Xinyi"}
	_, router := newTestServer(t, fake)
	c := newTestClient(t, router)
	startWizard(t, c)
	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, c, wizard.StepService, jsonBody{"id": 2})
	putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "09:00:00"})

	code, _, state := putStep(t, c, wizard.StepLocation, jsonBody{"id": 3})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepService, state.Step)
	assert.Nil(t, state.Selection.Time)
	assert.NotNil(t, state.Selection.Service)
}

func TestWizard_SubmitFailureKeepsInfoStep(t *testing.T) {
	fake := newFakeBackend()
	fake.createReply = `{"success":false,"data":null,"message":"slot already taken"}`
	_, router := newTestServer(t, fake)
	c := newTestClient(t, router)
	startWizard(t, c)
	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, c, wizard.StepService, jsonBody{"id": 2})
	putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "09:00:00"})
	putStep(t, c, wizard.StepInfo, jsonBody{"name": "Bob", "phone": "0922000222", "email": "bob@example.com"})

	w, resp := c.do(http.MethodPost, "/booking/session/submit", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "slot already taken", resp.message())
	assert.Len(t, fake.created, 1, "no retry")

	w, resp = c.do(http.MethodGet, "/booking/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state wizardResponse
	resp.decode(t, &state)
	assert.Equal(t, wizard.StepInfo, state.Step)
	assert.Nil(t, state.BookingID)
}

func TestSlots(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)

	w, resp := c.do(http.MethodGet, "/booking/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view slots.View
	resp.decode(t, &view)
	assert.Equal(t, slots.MsgNoLocation, view.Empty)

	w, resp = c.do(http.MethodGet, "/booking/slots?location_id=1&service_id=2&date=2024-06-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp.decode(t, &view)
	assert.Equal(t, "2024-06-15", view.Date)
	var times []string
	for _, s := range view.Slots {
		times = append(times, s.Time)
	}
	assert.Equal(t, []string{"11:00:00", "14:30:00"}, times, "deduplicated, sorted, past dropped")
	assert.Equal(t, "2:30 PM", view.Slots[1].Label)

	w, _ = c.do(http.MethodGet, "/booking/slots?location_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendar(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)

	w, resp := c.do(http.MethodGet, "/booking/calendar?month=2024-06&selected=2024-06-20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var month struct {
		Value string `json:"value"`
		Cells []struct {
			Blank    bool   `json:"blank"`
			Date     string `json:"date"`
			Today    bool   `json:"today"`
			Selected bool   `json:"selected"`
			Disabled bool   `json:"disabled"`
		} `json:"cells"`
	}
	resp.decode(t, &month)
	assert.Equal(t, "2024-06", month.Value)
	require.Len(t, month.Cells, 36, "June 2024 starts on a Saturday")
	for i := 0; i < 6; i++ {
		assert.True(t, month.Cells[i].Blank)
	}
	assert.Equal(t, "2024-06-01", month.Cells[6].Date)
	assert.True(t, month.Cells[6].Disabled)
	assert.True(t, month.Cells[6+14].Today)
	assert.False(t, month.Cells[6+14].Disabled)
	assert.True(t, month.Cells[6+19].Selected)

	w, _ = c.do(http.MethodGet, "/booking/calendar?month=June", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalog(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	c := newTestClient(t, router)

	w, resp := c.do(http.MethodGet, "/booking/locations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var locs []model.Location
	resp.decode(t, &locs)
	assert.Len(t, locs, 1)

	w, resp = c.do(http.MethodGet, "/booking/locations/1/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list serviceListResponse
	resp.decode(t, &list)
	assert.Equal(t, "Neihu", list.Location.Branch)
	assert.Len(t, list.Services, 1)

	w, resp = c.do(http.MethodGet, "/booking/locations/9/services", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/booking", resp.redirect(t))

	w, resp = c.do(http.MethodGet, "/booking/services/99?location_id=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/booking/locations/1/services", resp.redirect(t))

	w, resp = c.do(http.MethodGet, "/booking/confirm/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var b model.Booking
	resp.decode(t, &b)
	assert.Equal(t, "Alice", b.Name)

	w, resp = c.do(http.MethodGet, "/booking/confirm/1000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/booking", resp.redirect(t))
}

func slotTimes(t *testing.T, c *testClient, target string) []string {
	t.Helper()
	w, resp := c.do(http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.message())
	var view slots.View
	resp.decode(t, &view)
	times := []string{}
	for _, s := range view.Slots {
		times = append(times, s.Time)
	}
	return times
}

func TestWizard_BookedSlotIsWithdrawn(t *testing.T) {
	fake := newFakeBackend()
	_, router := newTestServer(t, fake)
	const target = "/booking/slots?location_id=1&service_id=2&date=2024-06-16"

	browser := newTestClient(t, router)
	assert.Contains(t, slotTimes(t, browser, target), "14:30:00")

	customer := newTestClient(t, router)
	startWizard(t, customer)
	putStep(t, customer, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, customer, wizard.StepService, jsonBody{"id": 2})
	code, _, _ := putStep(t, customer, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "14:30:00"})
	require.Equal(t, http.StatusOK, code)
	putStep(t, customer, wizard.StepInfo, jsonBody{"name": "Alice", "phone": "0912345678", "email": "alice@example.com"})
	w, resp := customer.do(http.MethodPost, "/booking/session/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, resp.message())

	fake.mu.Lock()
	fake.slots = []string{"09:00:00", "10:00:00", "11:00:00"}
	fake.mu.Unlock()

	assert.NotContains(t, slotTimes(t, browser, target), "14:30:00")
}

func TestWizard_TimeIsCheckedAgainstFreshSlots(t *testing.T) {
	fake := newFakeBackend()
	_, router := newTestServer(t, fake)
	c := newTestClient(t, router)
	startWizard(t, c)
	putStep(t, c, wizard.StepLocation, jsonBody{"id": 1})
	putStep(t, c, wizard.StepService, jsonBody{"id": 2})
	require.Contains(t, slotTimes(t, c, "/booking/slots?date=2024-06-16"), "14:30:00")

	// Taken through another channel while the list was on screen.
	fake.mu.Lock()
	fake.slots = []string{"09:00:00", "10:00:00"}
	fake.mu.Unlock()

	code, _, _ := putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "14:30:00"})
	assert.Equal(t, http.StatusConflict, code)
	code, _, _ = putStep(t, c, wizard.StepTime, jsonBody{"date": "2024-06-16", "time": "10:00:00"})
	assert.Equal(t, http.StatusOK, code)
}

func TestSlots_AnonymousVisitorsHaveOwnPickers(t *testing.T) {
	_, router := newTestServer(t, newFakeBackend())
	first := newTestClient(t, router)
	second := newTestClient(t, router)

	w, resp := first.do(http.MethodGet, "/booking/slots?location_id=1&service_id=2&date=2024-06-16", nil)
	require.Equal(t, http.StatusOK, w.Code, resp.message())
	require.Contains(t, first.cookies, PickerCookie)

	w, _ = second.do(http.MethodGet, "/booking/slots?location_id=1&service_id=2&date=2024-06-20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, second.cookies, PickerCookie)
	assert.NotEqual(t, first.cookies[PickerCookie].Value, second.cookies[PickerCookie].Value)

	w, resp = first.do(http.MethodGet, "/booking/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view slots.View
	resp.decode(t, &view)
	assert.Equal(t, "2024-06-16", view.Date)
	assert.Empty(t, view.Empty)
}
