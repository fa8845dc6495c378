package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"detailing-booking/config"
	"detailing-booking/internal/backend"
	"detailing-booking/internal/db"
	"detailing-booking/internal/metrics"
	"detailing-booking/internal/model"
	"detailing-booking/internal/store"
)

var taipei = time.FixedZone("UTC+8", 8*60*60)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 15, 10, 30, 0, 0, taipei)
}

const goodToken = "good-token"

// fakeBackend is an in-memory stand-in for the booking REST backend.
type fakeBackend struct {
	mu sync.Mutex

	locations map[int64]model.Location
	services  map[int64]model.Service
	slots     []string
	bookings  []model.Booking
	admin     model.Admin

	created      []model.CreateBookingRequest
	createReply  string
	listQueries  []string
	patches      map[int64]model.UpdateBookingRequest
	meCalls      int
	meStatus     int
	locationEdit *model.Location
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		locations: map[int64]model.Location{
			1: {ID: 1, City: "Taipei", Branch: "Neihu", Address: "1 Road", OpenTime: "09:00:00", CloseTime: "18:00:00"},
		},
		services: map[int64]model.Service{
			2: {ID: 2, Name: "Full Wash", Duration: 60},
		},
		slots: []string{"09:00:00", "10:00:00", "14:30:00", "10:00:00", "11:00:00"},
		bookings: []model.Booking{
			{ID: 7, LocationID: 1, ServiceID: 2, Time: "2024-06-16 10:00:00", Name: "Alice", Phone: "0911000111", Email: "alice@example.com", Status: model.StatusPending, Service: &model.Service{Name: "Full Wash"}},
			{ID: 8, LocationID: 1, ServiceID: 2, Time: "2024-06-17 11:00:00", Name: "Bob", Phone: "0922000222", Email: "bob@example.com", Status: model.StatusConfirmed},
		},
		admin:       model.Admin{ID: "admin-1", Account: "neihu", Password: "secret", LocationID: 1},
		createReply: `{"success":true,"data":{"id":42},"message":null}`,
		patches:     map[int64]model.UpdateBookingRequest{},
	}
}

func writeData(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data, "message": nil})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "data": nil, "message": msg})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (f *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+goodToken {
		writeFail(w, http.StatusUnauthorized, "invalid token")
		return false
	}
	return true
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/data/location", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]model.Location, 0, len(f.locations))
		for _, l := range f.locations {
			out = append(out, l)
		}
		writeData(w, out)
	})
	mux.HandleFunc("GET /v1/data/location/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		l, ok := f.locations[pathID(r)]
		if !ok {
			writeFail(w, http.StatusNotFound, "location not found")
			return
		}
		writeData(w, l)
	})
	mux.HandleFunc("GET /v1/data/service", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]model.Service, 0, len(f.services))
		for _, s := range f.services {
			out = append(out, s)
		}
		writeData(w, out)
	})
	mux.HandleFunc("GET /v1/data/service/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		s, ok := f.services[pathID(r)]
		if !ok {
			writeFail(w, http.StatusNotFound, "service not found")
			return
		}
		writeData(w, s)
	})
	mux.HandleFunc("GET /v1/data/booking/available-slots", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeData(w, f.slots)
	})
	mux.HandleFunc("GET /v1/data/booking/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, b := range f.bookings {
			if b.ID == pathID(r) {
				writeData(w, b)
				return
			}
		}
		writeFail(w, http.StatusNotFound, "booking not found")
	})
	mux.HandleFunc("POST /v1/data/booking", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req model.CreateBookingRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		w.Write([]byte(f.createReply))
	})
	mux.HandleFunc("POST /v1/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.ID != "neihu" || creds.Password != "secret" {
			writeFail(w, http.StatusUnauthorized, "Wrong account or password")
			return
		}
		writeData(w, goodToken)
	})
	mux.HandleFunc("GET /v1/admin/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.meCalls++
		if f.meStatus != 0 {
			writeFail(w, f.meStatus, "nope")
			return
		}
		if !f.authorized(w, r) {
			return
		}
		writeData(w, f.admin)
	})
	mux.HandleFunc("PATCH /v1/admin/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.authorized(w, r) {
			return
		}
		var a model.Admin
		json.NewDecoder(r.Body).Decode(&a)
		f.admin.Account = a.Account
		if a.Password != "" {
			f.admin.Password = a.Password
		}
		writeData(w, f.admin)
	})
	mux.HandleFunc("GET /v1/admin/booking", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.authorized(w, r) {
			return
		}
		q := r.URL.Query()
		f.listQueries = append(f.listQueries, q.Encode())
		out := []model.Booking{}
		for _, b := range f.bookings {
			if s := q.Get("status"); s != "" && string(b.Status) != s {
				continue
			}
			out = append(out, b)
		}
		writeData(w, map[string]any{"bookings": out, "total": len(out)})
	})
	mux.HandleFunc("PATCH /v1/admin/booking/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.authorized(w, r) {
			return
		}
		var req model.UpdateBookingRequest
		json.NewDecoder(r.Body).Decode(&req)
		id := pathID(r)
		f.patches[id] = req
		for i := range f.bookings {
			if f.bookings[i].ID == id && req.Status != nil {
				f.bookings[i].Status = *req.Status
			}
		}
		writeData(w, nil)
	})
	mux.HandleFunc("PATCH /v1/admin/location", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.authorized(w, r) {
			return
		}
		var l model.Location
		json.NewDecoder(r.Body).Decode(&l)
		f.locationEdit = &l
		f.locations[l.ID] = l
		writeData(w, nil)
	})
	return mux
}

func newTestServer(t *testing.T, fake *fakeBackend, tweaks ...func(*config.Config)) (*Handler, http.Handler) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60},
		Booking: config.BookingConfig{
			Location:          taipei,
			ScheduleMaxBadges: 3,
			SessionTTLMinutes: 60,
			RetentionHours:    72,
			PageSize:          50,
		},
	}
	for _, tweak := range tweaks {
		tweak(cfg)
	}
	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	client := backend.NewClient(config.BackendConfig{BaseURL: srv.URL}, m, zap.NewNop())

	h := NewHandler(cfg, client, store.NewGormStore(gormDB), m, zap.NewNop())
	h.now = fixedNow
	return h, NewRouter(h, cfg.Server, reg, zap.NewNop())
}
