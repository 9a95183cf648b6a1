package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/otp"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/ratelimit"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// Rate limit purposes
const (
	purposeSignIn    = "sign_in"
	purposeSignUp    = "sign_up"
	purposeSendOTP   = "send_otp"
	purposeVerifyOTP = "verify_otp"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service      *Service
	sealer       TokenSealer
	rateLimiter  *ratelimit.Limiter
	isProduction bool
}

func NewHandler(service *Service, sealer TokenSealer, rateLimiter *ratelimit.Limiter, isProduction bool) *Handler {
	return &Handler{
		service:      service,
		sealer:       sealer,
		rateLimiter:  rateLimiter,
		isProduction: isProduction,
	}
}

// SignInEmailRequest represents the email sign-in request body
type SignInEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpEmailRequest represents the email sign-up request body
type SignUpEmailRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendOTPRequest represents the send phone code request body
type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// VerifyPhoneRequest represents the verify phone code request body
type VerifyPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PhoneNumber   *string   `json:"phone_number,omitempty"`
	PhoneVerified bool      `json:"phone_verified"`
	Role          user.Role `json:"role"`
}

// SessionResponse is returned by every operation that opens a session.
// Token is only set for clients that asked not to use cookies.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PhoneNumber:   u.PhoneNumber,
		PhoneVerified: u.PhoneVerified,
		Role:          u.Role,
	}
}

// SignUpEmail handles password account registration
// @Summary      Sign up with email
// @Description  Create an account with email and password and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpEmailRequest true "Account details"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/sign-up/email [post]
func (h *Handler) SignUpEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipRateLimited(w, r, purposeSignUp) {
		return
	}

	var req SignUpEmailRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid sign-up request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, sess, err := h.service.SignUpEmail(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("sign-up failed: email already exists")
			respondError(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrEmailRequired):
			respondError(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat), errors.Is(err, ErrReservedEmailDomain):
			respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			respondError(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("sign-up failed: internal error", "error", err.Error())
			respondStoreError(w, err)
		}
		return
	}

	logger.Info("user signed up", "user_id", newUser.ID)
	h.respondSession(w, r, newUser, sess, http.StatusCreated)
}

// SignInEmail handles email and password sign-in
// @Summary      Sign in with email
// @Description  Authenticate with email and password and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInEmailRequest true "Credentials"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/sign-in/email [post]
func (h *Handler) SignInEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipRateLimited(w, r, purposeSignIn) {
		return
	}

	var req SignInEmailRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, sess, err := h.service.SignInEmail(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("sign-in failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("sign-in failed: internal error", "error", err.Error())
		respondStoreError(w, err)
		return
	}

	logger.Info("user signed in", "user_id", u.ID, "method", MethodEmail)
	h.respondSession(w, r, u, sess, http.StatusOK)
}

// SendPhoneOTP handles one-time code requests
// @Summary      Send phone code
// @Description  Send a one-time code to a phone number. Replaces any code sent before.
// @Tags         phone
// @Accept       json
// @Produce      json
// @Param        request body SendOTPRequest true "Phone number"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid phone number"
// @Failure      429 {object} httputil.ErrorResponse "Code requested too recently"
// @Failure      502 {object} httputil.ErrorResponse "Code could not be delivered"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/phone/send-otp [post]
func (h *Handler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipRateLimited(w, r, purposeSendOTP) {
		return
	}

	var req SendOTPRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid send-otp request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	normalized, err := h.service.SendPhoneCode(r.Context(), req.PhoneNumber)
	if err != nil {
		h.respondPhoneError(w, r, err)
		return
	}

	logger.Info("otp sent", "phone_number", normalized)
	httputil.RespondMessage(w, "code sent", http.StatusOK)
}

// VerifyPhone handles one-time code verification
// @Summary      Verify phone code
// @Description  Verify a one-time code and open a session. Creates an account on first sign-in.
// @Tags         phone
// @Accept       json
// @Produce      json
// @Param        request body VerifyPhoneRequest true "Phone number and code"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired or exhausted code"
// @Failure      409 {object} httputil.ErrorResponse "Phone number conflicts with an existing account"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/phone/verify [post]
func (h *Handler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.ipRateLimited(w, r, purposeVerifyOTP) {
		return
	}

	var req VerifyPhoneRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid verify request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		respondError(w, "code is required", httputil.CodeCodeRequired, http.StatusBadRequest)
		return
	}

	u, sess, err := h.service.VerifyPhone(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		h.respondPhoneError(w, r, err)
		return
	}

	logger.Info("user signed in", "user_id", u.ID, "method", MethodPhone)
	h.respondSession(w, r, u, sess, http.StatusOK)
}

// SignOut handles session termination
// @Summary      Sign out
// @Description  Invalidate the current session and clear the cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} httputil.MessageResponse
// @Router       /auth/sign-out [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if sealed, _ := sealedTokenFromRequest(r); sealed != "" {
		if token, err := h.sealer.Open(sealed); err == nil {
			if err := h.service.SignOut(r.Context(), token); err != nil {
				logger.Warn("failed to invalidate session", "error", err)
				// Continue - still clear cookies
			}
		}
	}

	ClearSessionCookie(w, h.isProduction)

	logger.Info("user signed out")
	httputil.RespondMessage(w, "signed out", http.StatusOK)
}

// CurrentSession returns the caller's identity
// @Summary      Current session
// @Description  Return the signed-in user and session expiry
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} SessionResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /auth/session [get]
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	u, ok := GetUserFromContext(r.Context())
	sess, hasSession := GetSessionFromContext(r.Context())
	if !ok || !hasSession {
		respondError(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	respondJSON(w, SessionResponse{User: NewUserResponse(u), ExpiresAt: sess.ExpiresAt}, http.StatusOK)
}

// respondSession seals the session and hands it to the client as a cookie,
// or in the body when the client asked for that
func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, u *user.User, sess *session.Session, status int) {
	logger := logging.GetLoggerFromContext(r.Context())

	sealed, err := h.sealer.Seal(sess.Token, sess.ExpiresAt)
	if err != nil {
		logger.Error("failed to seal session token", "error", err.Error())
		respondError(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	resp := SessionResponse{User: NewUserResponse(u), ExpiresAt: sess.ExpiresAt}
	if ShouldUseCookies(r) {
		SetSessionCookie(w, sealed, sess.ExpiresAt, h.isProduction)
	} else {
		resp.Token = sealed
	}

	respondJSON(w, resp, status)
}

// respondPhoneError maps phone and code failures. Unlike password failures
// they are distinguished, since the caller supplied the number.
func (h *Handler) respondPhoneError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, phone.ErrInvalid):
		logger.Warn("phone auth failed: invalid phone number")
		respondError(w, err.Error(), httputil.CodeInvalidPhone, http.StatusBadRequest)
	case errors.Is(err, otp.ErrRateLimited):
		logger.Warn("phone auth failed: rate limited")
		respondError(w, err.Error(), httputil.CodeRateLimited, http.StatusTooManyRequests)
	case errors.Is(err, otp.ErrNoChallenge):
		logger.Warn("phone auth failed: no challenge")
		respondError(w, err.Error(), httputil.CodeNoChallenge, http.StatusBadRequest)
	case errors.Is(err, otp.ErrExpired):
		logger.Warn("phone auth failed: code expired")
		respondError(w, err.Error(), httputil.CodeCodeExpired, http.StatusBadRequest)
	case errors.Is(err, otp.ErrInvalidCode):
		logger.Warn("phone auth failed: invalid code")
		respondError(w, err.Error(), httputil.CodeInvalidCode, http.StatusBadRequest)
	case errors.Is(err, otp.ErrTooManyAttempts):
		logger.Warn("phone auth failed: too many attempts")
		respondError(w, err.Error(), httputil.CodeTooManyAttempts, http.StatusBadRequest)
	case errors.Is(err, otp.ErrDeliveryFailed):
		logger.Error("phone auth failed: delivery", "error", err.Error())
		respondError(w, "failed to deliver code", httputil.CodeDeliveryFailed, http.StatusBadGateway)
	case errors.Is(err, ErrConflictingIdentity):
		logger.Error("phone auth failed: conflicting identity")
		respondError(w, err.Error(), httputil.CodeConflictingIdentity, http.StatusConflict)
	default:
		logger.Error("phone auth failed: internal error", "error", err.Error())
		respondStoreError(w, err)
	}
}

// ipRateLimited counts the request and answers 429 once the IP is over its window.
// Limiter failures are logged and let the request through.
func (h *Handler) ipRateLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP returns the client address. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
