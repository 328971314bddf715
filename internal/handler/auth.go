package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

// AuthHandler serves registration, login, logout, the Google sign-in flow and
// the identity probe the client calls on start-up.
type AuthHandler struct {
	auth      *service.AuthService
	google    *auth.GoogleProvider // nil when Google sign-in is not configured
	cookies   CookieConfig
	clientURL string
	logger    *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	google *auth.GoogleProvider,
	cookies CookieConfig,
	clientURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		google:    google,
		cookies:   cookies,
		clientURL: clientURL,
		logger:    logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/user/register {username, name, password} → 201 user
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Name, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin sets the session cookie.
//
// HTTP: POST /api/user/login {username, password} → 200 {id, username, name}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.cookies.setSession(w, res.Token)
	writeJSON(w, http.StatusOK, res.Identity())
}

// HandleLogout clears the session cookie. Calling it without a session is fine.
//
// HTTP: POST /api/user/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleProfile returns the caller's identity, or null for anonymous callers.
// An invalid token is treated as anonymous, never as an error.
//
// HTTP: GET /api/user/profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, json.RawMessage("null"))
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /api/user/google
//
// A random state is stored in a short-lived cookie and checked on callback, so
// only flows started here can complete.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the Google flow and sends the browser back to
// the client with a session cookie.
//
// HTTP: GET /api/user/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, h.clientRedirect("denied"), http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.clientRedirect("failed"), http.StatusSeeOther)
		return
	}

	res, err := h.auth.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		h.logger.Error("google callback: sign-in failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.clientRedirect("failed"), http.StatusSeeOther)
		return
	}

	h.cookies.setSession(w, res.Token)
	http.Redirect(w, r, h.clientURL, http.StatusSeeOther)
}

// clientRedirect builds the client URL carrying an auth outcome.
func (h *AuthHandler) clientRedirect(outcome string) string {
	u, err := url.Parse(h.clientURL)
	if err != nil {
		return h.clientURL
	}
	q := u.Query()
	q.Set("auth", outcome)
	u.RawQuery = q.Encode()
	return u.String()
}
