package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "session_token"

	// ClientTypeHeader lets non-browser clients ask for the token in the body
	ClientTypeHeader = "X-Client-Type"
	clientTypeAPI    = "api"
)

// ShouldUseCookies reports whether the session belongs in a cookie rather than
// the response body
func ShouldUseCookies(r *http.Request) bool {
	return r.Header.Get(ClientTypeHeader) != clientTypeAPI
}

// SetSessionCookie stores the sealed session token in an HttpOnly cookie
func SetSessionCookie(w http.ResponseWriter, sealed string, expiresAt time.Time, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sealed,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser
func ClearSessionCookie(w http.ResponseWriter, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionTokenFromCookie returns the sealed session token, if any
func GetSessionTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
