package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"detailing-booking/config"
	"detailing-booking/internal/metrics"
	"detailing-booking/internal/model"
)

// envelope is the uniform response wrapper. Success is absent on a couple of
// sample routes; success is then inferred from a non-null data field.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
}

func (e envelope) ok() bool {
	if e.Success != nil {
		return *e.Success
	}
	return len(e.Data) > 0 && string(e.Data) != "null"
}

func (e envelope) message() string {
	if e.Message == nil {
		return ""
	}
	return *e.Message
}

// Client talks to the booking backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	metrics *metrics.BackendMetrics
	logger  *zap.Logger
}

// NewClient creates a backend client. A configured proxy is applied to every
// request; an invalid proxy URL is logged and ignored.
func NewClient(cfg config.BackendConfig, m *metrics.BackendMetrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid backend proxy, connecting directly", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		metrics: m,
		logger:  logger,
	}
}

type request struct {
	name   string // metrics label
	method string
	path   string
	token  string
	query  url.Values
	body   any
}

// do executes req and decodes the envelope's data into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, req, out)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Debug("backend call failed", zap.String("endpoint", req.name), zap.Error(err))
	}
	c.metrics.ObserveRequest(req.name, outcome, time.Since(start).Seconds())
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		jsonBody, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("failed to unmarshal backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.message()}
	}
	if !env.ok() {
		return &APIError{Status: http.StatusUnprocessableEntity, Message: env.message()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", req.name, err)
	}
	return nil
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// ListLocations handles GET /v1/data/location.
func (c *Client) ListLocations(ctx context.Context) ([]model.Location, error) {
	var out []model.Location
	err := c.do(ctx, request{name: "list_locations", method: http.MethodGet, path: "/v1/data/location"}, &out)
	return out, err
}

// GetLocation handles GET /v1/data/location/:id.
func (c *Client) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	var out model.Location
	if err := c.do(ctx, request{name: "get_location", method: http.MethodGet, path: idPath("/v1/data/location", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListServices handles GET /v1/data/service.
func (c *Client) ListServices(ctx context.Context) ([]model.Service, error) {
	var out []model.Service
	err := c.do(ctx, request{name: "list_services", method: http.MethodGet, path: "/v1/data/service"}, &out)
	return out, err
}

// GetService handles GET /v1/data/service/:id.
func (c *Client) GetService(ctx context.Context, id int64) (*model.Service, error) {
	var out model.Service
	if err := c.do(ctx, request{name: "get_service", method: http.MethodGet, path: idPath("/v1/data/service", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableSlots handles GET /v1/data/booking/available-slots for one day.
func (c *Client) AvailableSlots(ctx context.Context, date string, locationID, serviceID int64) ([]model.TimeSlot, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("location_id", strconv.FormatInt(locationID, 10))
	q.Set("service_id", strconv.FormatInt(serviceID, 10))

	var out []model.TimeSlot
	err := c.do(ctx, request{name: "available_slots", method: http.MethodGet, path: "/v1/data/booking/available-slots", query: q}, &out)
	return out, err
}

// GetBooking handles GET /v1/data/booking/:id.
func (c *Client) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var out model.Booking
	if err := c.do(ctx, request{name: "get_booking", method: http.MethodGet, path: idPath("/v1/data/booking", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// bookingRef accepts the created booking as either a bare id or an object.
type bookingRef struct {
	ID int64
}

func (r *bookingRef) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &r.ID); err == nil {
		return nil
	}
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// CreateBooking handles POST /v1/data/booking and returns the new booking id.
func (c *Client) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (int64, error) {
	var ref bookingRef
	if err := c.do(ctx, request{name: "create_booking", method: http.MethodPost, path: "/v1/data/booking", body: req}, &ref); err != nil {
		return 0, err
	}
	return ref.ID, nil
}

// Login handles POST /v1/admin/login and returns the bearer token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var token string
	if err := c.do(ctx, request{name: "admin_login", method: http.MethodPost, path: "/v1/admin/login", body: creds}, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Me handles GET /v1/admin/me.
func (c *Client) Me(ctx context.Context, token string) (*model.Admin, error) {
	var out model.Admin
	if err := c.do(ctx, request{name: "admin_me", method: http.MethodGet, path: "/v1/admin/me", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe handles PATCH /v1/admin/me.
func (c *Client) UpdateMe(ctx context.Context, token string, admin model.Admin) (*model.Admin, error) {
	var out model.Admin
	if err := c.do(ctx, request{name: "admin_update_me", method: http.MethodPatch, path: "/v1/admin/me", token: token, body: admin}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookingPage is one page of the admin booking list.
type BookingPage struct {
	Bookings []model.Booking `json:"bookings"`
	Total    int             `json:"total"`
}

// UnmarshalJSON accepts a bare array or {"bookings": [...], "total": n}.
func (p *BookingPage) UnmarshalJSON(b []byte) error {
	var list []model.Booking
	if err := json.Unmarshal(b, &list); err == nil {
		p.Bookings = list
		p.Total = len(list)
		return nil
	}
	type plain BookingPage
	var pp plain
	if err := json.Unmarshal(b, &pp); err != nil {
		return err
	}
	*p = BookingPage(pp)
	if p.Total == 0 {
		p.Total = len(p.Bookings)
	}
	return nil
}

// AdminBookings handles GET /v1/admin/booking with the given filter query.
func (c *Client) AdminBookings(ctx context.Context, token string, query url.Values) (*BookingPage, error) {
	var out BookingPage
	if err := c.do(ctx, request{name: "admin_bookings", method: http.MethodGet, path: "/v1/admin/booking", token: token, query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBooking handles PATCH /v1/admin/booking/:id.
func (c *Client) UpdateBooking(ctx context.Context, token string, id int64, req model.UpdateBookingRequest) error {
	return c.do(ctx, request{name: "admin_update_booking", method: http.MethodPatch, path: idPath("/v1/admin/booking", id), token: token, body: req}, nil)
}

// UpdateLocation handles PATCH /v1/admin/location with a full replacement.
func (c *Client) UpdateLocation(ctx context.Context, token string, loc model.Location) error {
	return c.do(ctx, request{name: "admin_update_location", method: http.MethodPatch, path: "/v1/admin/location", token: token, body: loc}, nil)
}
