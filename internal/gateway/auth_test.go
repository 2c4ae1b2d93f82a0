package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name        string
		configToken string
		authHeader  string
		expectError bool
	}{
		{"valid token", "secret-token-123", "Bearer secret-token-123", false},
		{"case-insensitive scheme", "secret-token-123", "bearer secret-token-123", false},
		{"invalid token", "secret-token-123", "Bearer wrong-token", true},
		{"missing header", "secret-token-123", "", true},
		{"missing Bearer prefix", "secret-token-123", "secret-token-123", true},
		{"basic auth", "secret-token-123", "Basic dXNlcjpwYXNz", true},
		{"empty configured token", "", "Bearer anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthenticator(&AuthConfig{Token: tt.configToken})
			req := httptest.NewRequest(http.MethodGet, "/task/all", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			err := auth.Authenticate(req)
			if (err != nil) != tt.expectError {
				t.Errorf("Authenticate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestAuthenticateQueryParam(t *testing.T) {
	tests := []struct {
		name        string
		queryParam  string
		target      string
		expectError bool
	}{
		{"query token accepted", "token", "/ws?token=secret-token-123", false},
		{"wrong query token", "token", "/ws?token=nope", true},
		{"query disabled", "", "/ws?token=secret-token-123", true},
		{"missing query token", "token", "/ws", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthenticator(&AuthConfig{Token: "secret-token-123", QueryParam: tt.queryParam})
			err := auth.Authenticate(httptest.NewRequest(http.MethodGet, tt.target, nil))
			if (err != nil) != tt.expectError {
				t.Errorf("Authenticate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	h := NewAuthenticator(&AuthConfig{Token: "t"}).Middleware(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized || called {
		t.Errorf("unauthenticated request = %d, called=%v", w.Code, called)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !called {
		t.Errorf("authenticated request = %d, called=%v", w.Code, called)
	}
}
