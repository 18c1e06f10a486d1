package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crestline/tenantcore/internal/security"
	"github.com/crestline/tenantcore/internal/server/httpx"
	"github.com/crestline/tenantcore/internal/tenancy"
)

const bearerPrefix = "bearer "

// Auth validates the Bearer (access) token and binds the request-scoped
// tenant context. Requests without a valid token are rejected with 401;
// there is no anonymous fallback. If an earlier middleware already bound a
// scope (system-key elevation), the token is not consulted.
func Auth(tokens *security.TokenProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := tenancy.Current(r.Context()); err == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearer(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
				return
			}
			id, err := tokens.ValidateAccess(token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
				return
			}

			ctx, err := tenancy.With(r.Context(), tenancy.Scope{
				TenantID: id.TenantID,
				UserID:   id.UserID,
				OrgID:    id.OrgID,
				Source:   tenancy.SourceRequest,
			})
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
				return
			}

			zl := zerolog.Ctx(ctx).With().
				Str("tenant_id", id.TenantID).
				Str("user_id", id.UserID).
				Logger()
			ctx = zl.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Elevate grants a superadmin scope when the request presents a valid
// system key. The credential format is "actor:secret" in X-System-Key,
// verified against the configured bcrypt digests; X-Elevation-Reason is
// mandatory because the bypass is recorded before the scope exists.
// Requests without the header pass through untouched. Token claims can
// never produce an elevated scope; this header is the only path.
func Elevate(keys map[string]string, hasher *security.Hasher, rec tenancy.Recorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("X-System-Key"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, secret, ok := strings.Cut(raw, ":")
			digest := ""
			if ok {
				digest = keys[actor]
			}
			// Same response for unknown actor, bad secret, and a disabled
			// escape path: no probing which actors exist.
			if digest == "" || hasher.Compare(digest, []byte(secret)) != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid system key")
				return
			}

			reason := strings.TrimSpace(r.Header.Get("X-Elevation-Reason"))
			if reason == "" {
				httpx.WriteError(w, http.StatusBadRequest, "elevation_reason_required", "X-Elevation-Reason header is required")
				return
			}

			ctx, err := tenancy.Elevated(r.Context(), tenancy.Elevation{
				ActorID: actor,
				Reason:  reason,
				Source:  tenancy.SourceSystem,
			}, rec)
			if err != nil {
				// The bypass record could not be stored; the elevation must
				// not proceed without it.
				httpx.WriteError(w, http.StatusServiceUnavailable, "elevation_unavailable", "elevation could not be recorded")
				return
			}

			zl := zerolog.Ctx(ctx).With().
				Str("actor_id", actor).
				Bool("superadmin", true).
				Logger()
			ctx = zl.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or
// "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
