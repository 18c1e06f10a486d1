// Package server assembles the HTTP API: routes, the boundary middleware
// chain, and OpenTelemetry instrumentation.
package server

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/crestline/tenantcore/internal/audit"
	audithandler "github.com/crestline/tenantcore/internal/audit/handler"
	healthhandler "github.com/crestline/tenantcore/internal/health/handler"
	membershiphandler "github.com/crestline/tenantcore/internal/membership/handler"
	organizationhandler "github.com/crestline/tenantcore/internal/organization/handler"
	"github.com/crestline/tenantcore/internal/security"
	"github.com/crestline/tenantcore/internal/server/middleware"
	"github.com/crestline/tenantcore/internal/tenancy"
)

// Deps holds everything the router mounts.
type Deps struct {
	Logger zerolog.Logger

	// Tokens validates Bearer access tokens at the boundary.
	Tokens *security.TokenProvider
	// SystemKeys maps system actor ids to bcrypt digests for elevation.
	// Empty disables the escape path entirely.
	SystemKeys map[string]string
	// Hasher verifies system key secrets against their digests.
	Hasher *security.Hasher
	// AuditLogger trails elevated requests; it is also the bypass Recorder.
	AuditLogger audit.AuditLogger
	// Recorder receives the mandatory bypass record before any elevation.
	Recorder tenancy.Recorder

	Health        *healthhandler.Handler
	Organizations *organizationhandler.Handler
	Memberships   *membershiphandler.Handler
	AuditEvents   *audithandler.Handler
}

// NewRouter builds the full handler tree.
//
// Route layout: /healthz is public; everything under /v1/ sits behind the
// boundary chain (request logging, optional system-key elevation, token
// auth). The audit trail middleware wraps each /v1 route inside the mux so
// it can read the matched route pattern.
func NewRouter(d Deps) http.Handler {
	trail := middleware.Audit(d.AuditLogger)

	api := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		api.Handle(pattern, trail(h))
	}

	route("POST /v1/orgs", d.Organizations.Create)
	route("GET /v1/orgs", d.Organizations.List)
	route("GET /v1/orgs/{orgID}", d.Organizations.Get)

	route("GET /v1/orgs/{orgID}/members", d.Memberships.ListMembers)
	route("POST /v1/orgs/{orgID}/invitations", d.Memberships.Invite)
	route("POST /v1/invitations/accept", d.Memberships.Accept)
	route("PUT /v1/orgs/{orgID}/members/{userID}/role", d.Memberships.ChangeRole)
	route("DELETE /v1/orgs/{orgID}/members/{userID}", d.Memberships.Remove)

	route("GET /v1/audit/events", d.AuditEvents.List)

	authed := middleware.Chain(
		middleware.RequestLog(d.Logger),
		middleware.Elevate(d.SystemKeys, d.Hasher, d.Recorder),
		middleware.Auth(d.Tokens),
	)(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", d.Health.Check)
	root.Handle("/v1/", authed)

	return otelhttp.NewHandler(root, "tenantcore.http")
}
