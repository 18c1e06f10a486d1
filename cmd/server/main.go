// server is the tenantcore HTTP daemon: it wires config, logging,
// telemetry, the scoped data gateway, the authorization guard, and the
// boundary middleware into one listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crestline/tenantcore/internal/audit"
	audithandler "github.com/crestline/tenantcore/internal/audit/handler"
	auditrepo "github.com/crestline/tenantcore/internal/audit/repository"
	"github.com/crestline/tenantcore/internal/config"
	"github.com/crestline/tenantcore/internal/db"
	healthhandler "github.com/crestline/tenantcore/internal/health/handler"
	"github.com/crestline/tenantcore/internal/logger"
	membershiphandler "github.com/crestline/tenantcore/internal/membership/handler"
	membershiprepo "github.com/crestline/tenantcore/internal/membership/repository"
	membershipservice "github.com/crestline/tenantcore/internal/membership/service"
	organizationhandler "github.com/crestline/tenantcore/internal/organization/handler"
	organizationrepo "github.com/crestline/tenantcore/internal/organization/repository"
	"github.com/crestline/tenantcore/internal/platform/rbac"
	"github.com/crestline/tenantcore/internal/security"
	"github.com/crestline/tenantcore/internal/server"
	"github.com/crestline/tenantcore/internal/server/middleware"
	"github.com/crestline/tenantcore/internal/telemetry"
	telemetryotel "github.com/crestline/tenantcore/internal/telemetry/otel"
	"github.com/crestline/tenantcore/internal/tenantdb"
	"github.com/crestline/tenantcore/internal/tenantdb/pgstore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	zl := logger.Setup(cfg.LogLevel, cfg.Env == "development")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "tenantcore", false)
	if err != nil {
		zl.Fatal().Err(err).Msg("telemetry")
	}
	providers.SetGlobal()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	privKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		zl.Fatal().Err(err).Msg("JWT_PRIVATE_KEY")
	}
	pubKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		zl.Fatal().Err(err).Msg("JWT_PUBLIC_KEY")
	}
	tokens := security.NewTokenProvider(privKey, pubKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(pool), middleware.ClientIPFromContext).
		WithEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider))

	gw := tenantdb.New(pgstore.New(pool))
	guard := rbac.NewGuard(membershiprepo.NewGatewayRepository(gw))
	svc := membershipservice.NewMembershipService(gw, guard, auditLog, cfg.InviteTTL())

	router := server.NewRouter(server.Deps{
		Logger:        zl,
		Tokens:        tokens,
		SystemKeys:    cfg.SystemKeyDigests(),
		Hasher:        hasher,
		AuditLogger:   auditLog,
		Recorder:      auditLog,
		Health:        healthhandler.NewHandler(pool),
		Organizations: organizationhandler.NewHandler(svc, organizationrepo.NewGatewayRepository(gw), guard),
		Memberships:   membershiphandler.NewHandler(svc),
		AuditEvents:   audithandler.NewHandler(auditrepo.NewPostgresRepository(pool)),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	zl.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error().Err(err).Msg("http shutdown")
	}

	// Let in-flight async audit emits land before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		zl.Error().Err(err).Msg("telemetry shutdown")
	}
}
