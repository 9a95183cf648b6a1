package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Handler serves the admin user routes. Mount it behind RequireSession and
// RequireRole(RoleAdmin).
type Handler struct {
	admin *Admin
}

func NewHandler(admin *Admin) *Handler {
	return &Handler{admin: admin}
}

// SetRoleRequest represents the set role request body
type SetRoleRequest struct {
	Role Role `json:"role" example:"admin"`
}

// ListUsers returns a page of accounts
// @Summary      List users
// @Description  List accounts, newest first (admin only)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200 {array}  User
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Forbidden"
// @Router       /admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	limit := defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}

	users, err := h.admin.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error("list users failed", "error", err.Error())
		respondStoreError(w, err)
		return
	}

	httputil.RespondJSON(w, users, http.StatusOK)
}

// SetRole changes a user's role and ends their sessions
// @Summary      Set user role
// @Description  Change the role of an account and sign it out everywhere (admin only)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string         true "User ID"
// @Param        request body SetRoleRequest true "New role"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse "Invalid id or role"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Forbidden"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /admin/users/{id}/role [put]
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return
	}

	var req SetRoleRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, err := h.admin.SetRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRole, http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("set role failed", "error", err.Error())
			respondStoreError(w, err)
		}
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		httputil.RespondErrorWithCode(w, "service temporarily unavailable", httputil.CodeStoreUnavailable, http.StatusInternalServerError)
		return
	}
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}
