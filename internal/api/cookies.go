package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"detailing-booking/internal/session"
)

// WizardCookie carries the id of the customer's wizard session.
const WizardCookie = "detailing_wizard"

// PickerCookie identifies the slot picker of a visitor without a wizard.
const PickerCookie = "detailing_picker"

const tokenMaxAge = 7 * 24 * 60 * 60

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secure, true)
}

// cookieTokenStore keeps the admin token in an http-only cookie. Writes are
// visible to later reads within the same request.
type cookieTokenStore struct {
	h       *Handler
	c       *gin.Context
	pending *string
}

var _ session.TokenStore = (*cookieTokenStore)(nil)

func (s *cookieTokenStore) Get() (string, bool) {
	if s.pending != nil {
		return *s.pending, *s.pending != ""
	}
	v, err := s.c.Cookie(session.TokenKey)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *cookieTokenStore) Set(token string) {
	s.pending = &token
	s.h.setCookie(s.c, session.TokenKey, token, tokenMaxAge)
}

func (s *cookieTokenStore) Delete() {
	empty := ""
	s.pending = &empty
	s.h.setCookie(s.c, session.TokenKey, "", -1)
}
