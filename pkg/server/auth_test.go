package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

func withAuth(cfg *config.Config) {
	cfg.Server.Auth = config.AuthConfig{
		Enabled: true,
		Header:  config.DefaultAuthHeader,
		Keys: []config.APIKeyConfig{
			{Key: "sk-active", Name: "bot"},
			{Key: "sk-old", Name: "retired", Disabled: true},
		},
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, withAuth)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"unknown key", "sk-nope", http.StatusUnauthorized},
		{"disabled key", "sk-old", http.StatusUnauthorized},
		{"bare key", "sk-active", http.StatusOK},
		{"bearer key", "Bearer sk-active", http.StatusOK},
		{"lowercase bearer", "bearer sk-active", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := env.do(req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if resp := decodeError(t, w); resp.Error.Code != codeUnauthorized {
					t.Errorf("code = %q, want %q", resp.Error.Code, codeUnauthorized)
				}
				if w.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate header")
				}
			}
		})
	}
}

func TestAuthMiddleware_TelemetryOpen(t *testing.T) {
	env := newTestEnv(t, withAuth)

	for _, path := range []string{"/health", "/metrics"} {
		w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func TestAuthMiddleware_CustomHeader(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled: true,
		Header:  "X-API-Key",
		Keys:    []config.APIKeyConfig{{Key: "secret", Name: "ops"}},
	}

	var seen string
	handler := AuthMiddleware(cfg, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClientFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen != "ops" {
		t.Errorf("client = %q, want ops", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("key in wrong header: status = %d, want 401", w.Code)
	}
}

func TestKeyValidator(t *testing.T) {
	v := newKeyValidator([]config.APIKeyConfig{
		{Key: "a", Name: "first"},
		{Key: "b", Name: "second", Disabled: true},
	})

	if name, err := v.validate("a"); err != nil || name != "first" {
		t.Errorf("validate(a) = %q, %v", name, err)
	}
	if _, err := v.validate("b"); err != errDisabledKey {
		t.Errorf("validate(b) error = %v, want %v", err, errDisabledKey)
	}
	if _, err := v.validate(""); err != errMissingKey {
		t.Errorf("validate(\"\") error = %v, want %v", err, errMissingKey)
	}
	if _, err := v.validate("c"); err != errInvalidKey {
		t.Errorf("validate(c) error = %v, want %v", err, errInvalidKey)
	}
}
