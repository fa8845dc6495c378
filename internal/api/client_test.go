package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testClient drives the router and keeps cookies between requests.
type testClient struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T, router http.Handler) *testClient {
	return &testClient{t: t, router: router, cookies: map[string]*http.Cookie{}}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
}

func (r apiResponse) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, out))
}

func (r apiResponse) redirect(t *testing.T) string {
	t.Helper()
	var hint redirectHint
	r.decode(t, &hint)
	return hint.Redirect
}

func (r apiResponse) message() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

func (c *testClient) do(method, target string, body any) (*httptest.ResponseRecorder, apiResponse) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func queryParam(t *testing.T, encoded, name string) string {
	t.Helper()
	v, err := url.ParseQuery(encoded)
	require.NoError(t, err)
	return v.Get(name)
}
