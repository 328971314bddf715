package handler

import (
	"net/http"
	"time"

	"github.com/sakif/blog-platform/internal/auth"
)

const oauthStateCookie = "oauth_state"

// CookieConfig controls the attributes of the session cookie.
//
// The client is served from another origin, so a Secure deployment needs
// SameSite=None for the browser to send the cookie on API calls. Without TLS
// (local development) Lax is used, since None requires Secure.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}
