package gateway

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// AuthConfig holds admin API authentication configuration.
type AuthConfig struct {
	Token string `yaml:"token,omitempty"`
	// QueryParam, when set, names a query parameter that may carry the token
	// for clients that cannot set headers, such as browser websockets.
	QueryParam string `yaml:"query_param,omitempty"`
}

// Authenticator checks bearer tokens on admin requests.
type Authenticator struct {
	config *AuthConfig
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(config *AuthConfig) *Authenticator {
	return &Authenticator{config: config}
}

// Authenticate validates a request
func (a *Authenticator) Authenticate(r *http.Request) error {
	token := extractBearerToken(r)
	if token == "" && a.config.QueryParam != "" {
		token = r.URL.Query().Get(a.config.QueryParam)
	}
	if token == "" {
		return errors.New("missing authorization token")
	}
	if a.config.Token == "" || !secureCompare(token, a.config.Token) {
		return errors.New("invalid token")
	}
	return nil
}

// extractBearerToken extracts the bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return auth[len(prefix):]
}

// secureCompare performs constant-time string comparison
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Middleware returns 401 Unauthorized for requests that fail authentication.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Authenticate(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
