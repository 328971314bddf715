package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

// UserHandler serves profiles and the follow graph.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// FollowResponse is the body of a follow toggle.
type FollowResponse struct {
	Status string `json:"status"`
}

// HandleGetSelf returns the caller's account.
//
// HTTP: GET /api/user
func (h *UserHandler) HandleGetSelf(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	user, err := h.users.GetSelf(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateSelf edits the caller's profile.
//
// HTTP: PUT /api/user (multipart: name, bio, oldPassword, newPassword, files profileImg, coverImg)
func (h *UserHandler) HandleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanupForm(r)

	profileImg, c1, err := formFile(r, "profileImg")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	coverImg, c2, err := formFile(r, "coverImg")
	if err != nil {
		closeAll(c1)
		writeError(w, h.logger, err)
		return
	}
	defer closeAll(c1, c2)

	caller, _ := auth.IdentityFromContext(r.Context())
	user, err := h.users.UpdateSelf(r.Context(), caller, service.ProfileUpdate{
		Name:        formValue(r, "name"),
		Bio:         formValue(r, "bio"),
		OldPassword: r.PostFormValue("oldPassword"),
		NewPassword: r.PostFormValue("newPassword"),
		ProfileImg:  profileImg,
		CoverImg:    coverImg,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGetUser returns a public profile.
//
// HTTP: GET /api/user/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetPublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleFollow toggles the caller's follow of {id}.
//
// HTTP: POST /api/user/follow/{id} → {"status": "followed" | "unfollowed"}
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	status, err := h.users.ToggleFollow(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FollowResponse{Status: status})
}

// HandleFollowers lists who follows {id}.
//
// HTTP: GET /api/user/followers/{id}
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Followers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleFollowing lists whom {id} follows.
//
// HTTP: GET /api/user/following/{id}
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Following(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
