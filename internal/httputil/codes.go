package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"

	// Credentials
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired   = "PASSWORD_REQUIRED"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodeEmailAlreadyExists = "EMAIL_EXISTS"

	// Phone verification
	CodeInvalidPhone        = "INVALID_PHONE"
	CodeCodeRequired        = "CODE_REQUIRED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNoChallenge         = "NO_CHALLENGE"
	CodeCodeExpired         = "CODE_EXPIRED"
	CodeInvalidCode         = "INVALID_CODE"
	CodeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	CodeDeliveryFailed      = "DELIVERY_FAILED"
	CodeConflictingIdentity = "CONFLICTING_IDENTITY"

	// Sessions
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidAuthHeader = "INVALID_AUTH_HEADER"
	CodeForbidden         = "FORBIDDEN"

	// Content
	CodeTitleRequired   = "TITLE_REQUIRED"
	CodeTitleTooLong    = "TITLE_TOO_LONG"
	CodeContentRequired = "CONTENT_REQUIRED"
	CodeContentTooLong  = "CONTENT_TOO_LONG"

	// Admin
	CodeInvalidUserID = "INVALID_USER_ID"
	CodeUserNotFound  = "USER_NOT_FOUND"
	CodeInvalidRole   = "INVALID_ROLE"
)
