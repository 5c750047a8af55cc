package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gitlab.com/aventra/api/pulse-content-service/internal/application"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// Router binds the application services to the REST routes.
type Router struct {
	logger   domain.Logger
	posts    *application.PostService
	users    *application.UserService
	comments *application.CommentService
}

// NewRouter creates a Router.
func NewRouter(logger domain.Logger, posts *application.PostService, users *application.UserService, comments *application.CommentService) *Router {
	if logger == nil || posts == nil || users == nil || comments == nil {
		panic("http.NewRouter: all dependencies are required")
	}
	return &Router{logger: logger, posts: posts, users: users, comments: comments}
}

// Register attaches every API route to mux. Each route is mounted behind
// RequestIDMiddleware so the request id reaches log enrichment and the
// producer's broker header on the write path.
func (rt *Router) Register(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestIDMiddleware(h))
	}

	handle("POST /api/v1/posts/create", rt.createPost)
	handle("GET /api/v1/posts", rt.listPosts)
	handle("GET /api/v1/posts/me", rt.listMyPosts)
	handle("GET /api/v1/posts/{id}", rt.getPost)
	handle("PUT /api/v1/posts/{id}", rt.updatePost)
	handle("DELETE /api/v1/posts/{id}", rt.deletePost)

	handle("POST /api/v1/users", rt.createUser)
	handle("GET /api/v1/users", rt.listUsers)
	handle("GET /api/v1/users/search", rt.searchUser)
	handle("GET /api/v1/users/{id}", rt.getUser)
	handle("PUT /api/v1/users/{id}", rt.updateUser)
	handle("DELETE /api/v1/users/{id}", rt.deleteUser)

	handle("POST /api/v1/comments/new/{postId}", rt.createComment)
	handle("GET /api/v1/comments/{id}", rt.getComment)
	handle("PUT /api/v1/comments/{id}", rt.updateComment)
	handle("DELETE /api/v1/comments/{id}", rt.deleteComment)
}

func (rt *Router) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.logger.Error(r.Context(), "Failed to encode response", "error", err.Error(), "path", r.URL.Path)
	}
}

// writeError maps domain sentinels onto HTTP statuses; anything else is a 500.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		domain.NewErrorResponse(domain.ErrCodeNotFound, "Resource not found.", "").WriteJSON(w, http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		domain.NewErrorResponse(domain.ErrCodeForbidden, "You do not own this resource.", "").WriteJSON(w, http.StatusForbidden)
	default:
		rt.logger.Error(r.Context(), "Request failed", "error", err.Error(), "path", r.URL.Path)
		domain.NewErrorResponse(domain.ErrCodeInternal, "Internal server error.", "").WriteJSON(w, http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger domain.Logger, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn(r.Context(), "Failed to decode request payload", "error", err.Error(), "path", r.URL.Path)
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Invalid request payload.", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return false
	}
	return true
}

func pagination(r *http.Request) domain.Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return domain.Pagination{Page: page, Limit: limit}.Normalized()
}

// ---- posts ----

func (rt *Router) createPost(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	var input application.CreatePostInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	if input.Title == "" || input.Content == "" {
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Invalid payload.", "title and content are required.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	post, err := rt.posts.Create(r.Context(), userID, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, post)
}

func (rt *Router) listPosts(w http.ResponseWriter, r *http.Request) {
	page, err := rt.posts.FindAll(r.Context(), pagination(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, page)
}

func (rt *Router) listMyPosts(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	page, err := rt.posts.FindMine(r.Context(), userID, pagination(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, page)
}

func (rt *Router) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := rt.posts.FindOne(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, post)
}

func (rt *Router) updatePost(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	var input application.UpdatePostInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	post, err := rt.posts.Update(r.Context(), r.PathValue("id"), userID, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, post)
}

func (rt *Router) deletePost(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	if err := rt.posts.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- users ----

func (rt *Router) createUser(w http.ResponseWriter, r *http.Request) {
	var input application.CreateUserInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	if input.Username == "" || input.Email == "" {
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Invalid payload.", "username and email are required.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	user, err := rt.users.Create(r.Context(), input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, user)
}

func (rt *Router) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := rt.users.FindAll(r.Context(), pagination(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, page)
}

// searchUser resolves a user by exactly one of ?email= or ?username=.
func (rt *Router) searchUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	username := r.URL.Query().Get("username")

	var (
		user domain.User
		err  error
	)
	switch {
	case email != "" && username == "":
		user, err = rt.users.FindByEmail(r.Context(), email)
	case username != "" && email == "":
		user, err = rt.users.FindByUsername(r.Context(), username)
	default:
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Invalid query.", "Provide exactly one of email or username.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, user)
}

func (rt *Router) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := rt.users.FindOne(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, user)
}

func (rt *Router) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	var input application.UpdateUserInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	user, err := rt.users.Update(r.Context(), r.PathValue("id"), userID, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, user)
}

func (rt *Router) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	if err := rt.users.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- comments ----

func (rt *Router) createComment(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	var input application.CreateCommentInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	if input.Content == "" {
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Invalid payload.", "content is required.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	comment, err := rt.comments.Create(r.Context(), r.PathValue("postId"), userID, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, comment)
}

func (rt *Router) getComment(w http.ResponseWriter, r *http.Request) {
	comment, err := rt.comments.FindOne(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, comment)
}

func (rt *Router) updateComment(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	var input application.UpdateCommentInput
	if !decodeBody(w, r, rt.logger, &input) {
		return
	}
	comment, err := rt.comments.Update(r.Context(), r.PathValue("id"), userID, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, comment)
}

func (rt *Router) deleteComment(w http.ResponseWriter, r *http.Request) {
	userID, r, ok := callerID(w, r, rt.logger)
	if !ok {
		return
	}
	if err := rt.comments.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
