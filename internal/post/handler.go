package post

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/redmonkez12/go-phone-auth/internal/auth"
	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Store is the persistence the handler needs
type Store interface {
	Create(ctx context.Context, np NewPost) (*Post, error)
	List(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Handler handles content HTTP requests
type Handler struct {
	posts Store
}

func NewHandler(posts Store) *Handler {
	return &Handler{posts: posts}
}

// CreatePostRequest represents the create content request body
type CreatePostRequest struct {
	Title   string `json:"title" example:"Hello"`
	Content string `json:"content" example:"Your post content"`
}

// CreatePost handles content creation. Must be mounted behind RequireSession.
// @Summary      Create content
// @Description  Create a post authored by the signed-in user
// @Tags         content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePostRequest true "Post"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /content [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	author, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	var req CreatePostRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("create post failed: invalid request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	np := NewPost{Title: req.Title, Content: req.Content, AuthorID: author.ID}
	if err := np.Validate(); err != nil {
		logger.Warn("create post failed: validation", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), validationCode(err), http.StatusBadRequest)
		return
	}

	created, err := h.posts.Create(r.Context(), np)
	if err != nil {
		logger.Error("create post failed", "error", err.Error())
		respondStoreError(w, err)
		return
	}

	logger.Info("post created", "post_id", created.ID)
	httputil.RespondMessage(w, "Post created correctly", http.StatusOK)
}

// ListPosts returns content with authors, newest first
// @Summary      List content
// @Description  List posts with their authors, newest first
// @Tags         content
// @Produce      json
// @Param        limit  query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {array}  Entry
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /content [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	limit, offset := pagination(r)
	entries, err := h.posts.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error("list posts failed", "error", err.Error())
		respondStoreError(w, err)
		return
	}

	httputil.RespondJSON(w, entries, http.StatusOK)
}

func validationCode(err error) string {
	switch {
	case errors.Is(err, ErrTitleRequired):
		return httputil.CodeTitleRequired
	case errors.Is(err, ErrTitleTooLong):
		return httputil.CodeTitleTooLong
	case errors.Is(err, ErrContentRequired):
		return httputil.CodeContentRequired
	default:
		return httputil.CodeContentTooLong
	}
}

// pagination reads limit and offset, falling back to defaults on bad input
func pagination(r *http.Request) (int, int) {
	limit := defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		httputil.RespondErrorWithCode(w, "service temporarily unavailable", httputil.CodeStoreUnavailable, http.StatusInternalServerError)
		return
	}
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}
