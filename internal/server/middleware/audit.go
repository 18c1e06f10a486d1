package middleware

import (
	"fmt"
	"net/http"

	"github.com/crestline/tenantcore/internal/audit"
	"github.com/crestline/tenantcore/internal/tenancy"
)

// Audit trails elevated traffic: every request running under a superadmin
// scope gets an audit event derived from the matched route pattern,
// regardless of method or outcome status. Ordinary tenant requests are not
// logged here; the domain services record their own richer events.
//
// Must run inside the mux (wrapped per route) so r.Pattern is populated.
func Audit(logger audit.AuditLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)

			if logger == nil {
				return
			}
			scope, err := tenancy.Current(r.Context())
			if err != nil || !scope.SuperAdmin() {
				return
			}
			ar := audit.ParseRoute(r.Method, r.Pattern)
			meta := fmt.Sprintf("superadmin=true status=%d", sr.status)
			logger.LogEvent(r.Context(), scope.OrgID, scope.UserID, ar.Action, ar.Resource, meta)
		})
	}
}

// statusRecorder captures the response status code for post-hoc logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap supports http.NewResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
