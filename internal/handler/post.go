package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

// PostHandler serves the feed, post editing and engagement routes.
type PostHandler struct {
	posts  *service.PostService
	feed   *service.FeedService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, feed *service.FeedService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, feed: feed, logger: logger}
}

// ViewsResponse is the body of a view increment.
type ViewsResponse struct {
	Views int64 `json:"views"`
}

type commentRequest struct {
	Content string `json:"content"`
}

// HandleList serves one page of the feed.
//
// HTTP: GET /api/post?page=1&select=3&search=&tagPost=All&sort=-1&following=false
//
// Unparseable numbers fall back to their defaults.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("select"))

	caller, _ := auth.IdentityFromContext(r.Context())
	res, err := h.feed.List(r.Context(), caller, service.FeedRequest{
		Page:          page,
		PageSize:      pageSize,
		Search:        q.Get("search"),
		Tags:          q.Get("tagPost"),
		Ascending:     q.Get("sort") == "1",
		FollowingOnly: q.Get("following") == "true",
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleListByAuthor serves a profile page: the author and all their posts.
//
// HTTP: GET /api/post/profile/{id}
func (h *PostHandler) HandleListByAuthor(w http.ResponseWriter, r *http.Request) {
	res, err := h.feed.ListByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGet returns one post.
//
// HTTP: GET /api/post/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// readPostForm parses the multipart post editor form.
func (h *PostHandler) readPostForm(w http.ResponseWriter, r *http.Request) (service.PostInput, func(), error) {
	if err := parseForm(w, r); err != nil {
		return service.PostInput{}, func() {}, err
	}
	file, closer, err := formFile(r, "file")
	if err != nil {
		cleanupForm(r)
		return service.PostInput{}, func() {}, err
	}

	in := service.PostInput{
		Title:   r.PostFormValue("title"),
		Summary: r.PostFormValue("summary"),
		Content: r.PostFormValue("content"),
		Tags:    r.PostFormValue("postTags"),
		Cover:   r.PostFormValue("cover"),
		File:    file,
	}
	return in, func() { closeAll(closer); cleanupForm(r) }, nil
}

// HandleCreate publishes a post.
//
// HTTP: POST /api/post (multipart: title, summary, content, postTags, cover, file) → 201 post
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, done, err := h.readPostForm(w, r)
	defer done()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.posts.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate edits a post the caller authored. The post id travels in the form.
//
// HTTP: PUT /api/post (multipart: id, title, summary, content, postTags, cover, file)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, done, err := h.readPostForm(w, r)
	defer done()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	id := r.PostFormValue("id")
	if id == "" {
		writeError(w, h.logger, apperror.ValidationFailed("id", "id is required"))
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.posts.Update(r.Context(), caller, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post the caller authored.
//
// HTTP: DELETE /api/post/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	if err := h.posts.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "post deleted"})
}

// HandleAddComment appends a comment.
//
// HTTP: POST /api/post/{id}/comment {content} → 201 post
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.posts.AddComment(r.Context(), caller, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleEditComment rewrites a comment the caller authored.
//
// HTTP: PUT /api/post/{id}/comment/{commentId} {content}
func (h *PostHandler) HandleEditComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.posts.EditComment(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDeleteComment removes a comment the caller authored.
//
// HTTP: DELETE /api/post/{id}/comment/{commentId}
func (h *PostHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.posts.DeleteComment(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleLike toggles the caller's like.
//
// HTTP: POST /api/post/{id}/like → {liked, likes}
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())
	res, err := h.posts.ToggleLike(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleView counts a view.
//
// HTTP: POST /api/post/{id}/views → {views}
func (h *PostHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	views, err := h.posts.RecordView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewsResponse{Views: views})
}
