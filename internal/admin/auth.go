package admin

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator guards the admin endpoints with a random path and token.
type Authenticator struct {
	token        string
	path         string
	secureCookie bool
}

const (
	adminPathLength  = 32
	adminTokenLength = 32
	cookieName       = "goforwarded_admin_token"
	cookieMaxAge     = 86400 // 24 hours in seconds
)

// NewAuthenticator creates an authenticator with a fresh random token and path.
//
// Parameters:
//   - secureCookie: whether the session cookie is restricted to HTTPS
//
// Returns a new Authenticator instance or an error if random generation fails.
func NewAuthenticator(secureCookie bool) (*Authenticator, error) {
	token, err := generateSecureRandomString(adminTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin token: %w", err)
	}

	path, err := generateSecureRandomString(adminPathLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin path: %w", err)
	}

	return &Authenticator{
		token:        token,
		path:         "/" + path,
		secureCookie: secureCookie,
	}, nil
}

// generateSecureRandomString returns length URL-safe characters from crypto/rand.
func generateSecureRandomString(length int) (string, error) {
	// base64 yields 4 characters per 3 bytes
	b := make([]byte, (length*3)/4+3)
	if _, err := cryptorand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secure random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

// Token returns the authentication token.
func (a *Authenticator) Token() string {
	return a.token
}

// Path returns the admin endpoint path.
func (a *Authenticator) Path() string {
	return a.path
}

// ValidateToken compares token against the admin token in constant time.
func (a *Authenticator) ValidateToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// TokenFromRequest returns the token from the session cookie or, failing
// that, from an "Authorization: Bearer" header.
func (a *Authenticator) TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// SetCookie sets the admin session cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    a.token,
		Path:     a.path,
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   a.secureCookie,
	})
}

// IsAuthenticated reports whether r carries the admin token.
func (a *Authenticator) IsAuthenticated(r *http.Request) bool {
	return a.ValidateToken(a.TokenFromRequest(r))
}

// LoginURL returns the one-time login URL below baseURL, e.g.
// "http://localhost:8000".
func (a *Authenticator) LoginURL(baseURL string) string {
	return fmt.Sprintf("%s%s/login?token=%s", strings.TrimSuffix(baseURL, "/"), a.path, a.token)
}

// AdminURL returns the dashboard URL below baseURL, without the token.
func (a *Authenticator) AdminURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + a.path
}
