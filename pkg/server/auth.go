package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

var (
	errMissingKey  = errors.New("missing API key")
	errInvalidKey  = errors.New("invalid API key")
	errDisabledKey = errors.New("API key disabled")
)

// keyValidator checks presented API keys against the configured set.
type keyValidator struct {
	keys []config.APIKeyConfig
}

func newKeyValidator(keys []config.APIKeyConfig) *keyValidator {
	return &keyValidator{keys: append([]config.APIKeyConfig(nil), keys...)}
}

// validate returns the name of the key matching presented. Every configured
// key is compared so the time taken does not depend on which one matched.
func (v *keyValidator) validate(presented string) (string, error) {
	if presented == "" {
		return "", errMissingKey
	}
	var match *config.APIKeyConfig
	for i := range v.keys {
		if subtle.ConstantTimeCompare([]byte(v.keys[i].Key), []byte(presented)) == 1 {
			match = &v.keys[i]
		}
	}
	if match == nil {
		return "", errInvalidKey
	}
	if match.Disabled {
		return "", errDisabledKey
	}
	return match.Name, nil
}

type clientKey struct{}

// ClientFromContext returns the name of the API key that authenticated the
// request, if any.
func ClientFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientKey{}).(string)
	return name, ok && name != ""
}

// AuthMiddleware rejects requests that do not carry a valid API key in the
// configured header. A "Bearer " scheme prefix is accepted and stripped.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	validator := newKeyValidator(cfg.Keys)
	header := cfg.Header
	if header == "" {
		header = config.DefaultAuthHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, err := validator.validate(extractKey(r.Header.Get(header)))
			if err != nil {
				logger.Warn("request rejected",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="statblock"`)
				writeError(w, r, http.StatusUnauthorized, codeUnauthorized, err.Error())
				return
			}

			logger.Debug("request authenticated", "client", name, "path", r.URL.Path)
			ctx := context.WithValue(r.Context(), clientKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}
