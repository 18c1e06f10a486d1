// seed inserts development sample data: two tenants, each with an
// organization and two members, for poking at isolation by hand.
// Idempotent: it skips tenants whose sample org already exists.
//
// The existence check reads across tenants, so it runs on an elevated
// scope obtained through the audited escape path; the per-tenant inserts run
// on plain tenant-bound system scopes like any other unit of work.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crestline/tenantcore/internal/audit"
	auditrepo "github.com/crestline/tenantcore/internal/audit/repository"
	"github.com/crestline/tenantcore/internal/config"
	"github.com/crestline/tenantcore/internal/db"
	memdomain "github.com/crestline/tenantcore/internal/membership/domain"
	membershiprepo "github.com/crestline/tenantcore/internal/membership/repository"
	orgdomain "github.com/crestline/tenantcore/internal/organization/domain"
	organizationrepo "github.com/crestline/tenantcore/internal/organization/repository"
	"github.com/crestline/tenantcore/internal/tenancy"
	"github.com/crestline/tenantcore/internal/tenantdb"
	"github.com/crestline/tenantcore/internal/tenantdb/pgstore"
	userdomain "github.com/crestline/tenantcore/internal/user/domain"
	userrepo "github.com/crestline/tenantcore/internal/user/repository"
)

type tenantSeed struct {
	tenantID string
	orgID    string
	orgName  string
	orgSlug  string
	ownerID  string
	memberID string
}

var seeds = []tenantSeed{
	{
		tenantID: "dev-tenant-001",
		orgID:    "dev-org-001",
		orgName:  "Acme Rockets",
		orgSlug:  "acme-rockets",
		ownerID:  "dev-user-001",
		memberID: "dev-user-002",
	},
	{
		tenantID: "dev-tenant-002",
		orgID:    "dev-org-002",
		orgName:  "Borealis Labs",
		orgSlug:  "borealis-labs",
		ownerID:  "dev-user-003",
		memberID: "dev-user-004",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	gw := tenantdb.New(pgstore.New(pool))
	recorder := audit.NewLogger(auditrepo.NewPostgresRepository(pool), nil)

	existing, err := tenancy.RunElevated(ctx, tenancy.Elevation{
		ActorID: "seed-job",
		Reason:  "seed_existence_check",
		Source:  tenancy.SourceSystem,
	}, recorder, func(ctx context.Context) (map[string]bool, error) {
		out := make(map[string]bool)
		orgs := organizationrepo.NewGatewayRepository(gw)
		for _, s := range seeds {
			org, err := orgs.GetOrganizationByID(ctx, s.orgID)
			if err != nil {
				return nil, err
			}
			out[s.orgID] = org != nil
		}
		return out, nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("existence check")
	}

	for _, s := range seeds {
		if existing[s.orgID] {
			log.Info().Str("org", s.orgSlug).Msg("already seeded; skipping")
			continue
		}
		err := tenancy.RunWith(ctx, tenancy.Scope{
			TenantID: s.tenantID,
			UserID:   s.ownerID,
			Source:   tenancy.SourceSystem,
		}, func(ctx context.Context) error {
			return seedTenant(ctx, gw, s)
		})
		if err != nil {
			log.Fatal().Err(err).Str("tenant", s.tenantID).Msg("seeding tenant")
		}
		log.Info().Str("tenant", s.tenantID).Str("org", s.orgSlug).Msg("seeded")
	}
}

func seedTenant(ctx context.Context, gw *tenantdb.Gateway, s tenantSeed) error {
	now := time.Now().UTC()
	return gw.Transactional(ctx, func(tx *tenantdb.Gateway) error {
		orgs := organizationrepo.NewGatewayRepository(tx)
		users := userrepo.NewGatewayRepository(tx)
		members := membershiprepo.NewGatewayRepository(tx)

		if err := orgs.CreateOrganization(ctx, &orgdomain.Org{
			ID:        s.orgID,
			Name:      s.orgName,
			Slug:      s.orgSlug,
			Status:    orgdomain.OrgStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		for i, userID := range []string{s.ownerID, s.memberID} {
			email := "owner@" + s.orgSlug + ".test"
			role := memdomain.RoleOwner
			flags := memdomain.AllPermissions()
			if i == 1 {
				email = "member@" + s.orgSlug + ".test"
				role = memdomain.RoleMember
				flags = memdomain.DefaultPermissions(role)
			}
			if err := users.Create(ctx, &userdomain.User{
				ID:        userID,
				Email:     email,
				Status:    userdomain.UserStatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			if err := members.CreateMembership(ctx, &memdomain.Membership{
				ID:        userID + "-" + s.orgID,
				UserID:    userID,
				OrgID:     s.orgID,
				Role:      role,
				Status:    memdomain.StatusActive,
				Flags:     flags,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
