package pgstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crestline/tenantcore/internal/tenantdb"
)

func TestBuildSelect(t *testing.T) {
	t.Run("full query", func(t *testing.T) {
		sql, args, err := buildSelect(tenantdb.Query{
			Table:   "memberships",
			Columns: []string{"id", "role"},
			Where: []tenantdb.Cond{
				tenantdb.Eq("tenant_id", "t1"),
				tenantdb.Eq("user_id", "u1"),
				tenantdb.IsNull("deleted_at"),
			},
			OrderBy: []tenantdb.Order{{Col: "created_at", Desc: true}},
			Limit:   10,
		})
		require.NoError(t, err)
		require.Equal(t,
			`SELECT "id", "role" FROM "memberships"`+
				` WHERE "tenant_id" = $1 AND "user_id" = $2 AND "deleted_at" IS NULL`+
				` ORDER BY "created_at" DESC LIMIT 10`,
			sql)
		require.Equal(t, []any{"t1", "u1"}, args)
	})

	t.Run("tenant conjunct cannot be overridden by a second tenant cond", func(t *testing.T) {
		sql, args, err := buildSelect(tenantdb.Query{
			Table: "users",
			Where: []tenantdb.Cond{
				tenantdb.Eq("tenant_id", "t1"),
				tenantdb.Eq("tenant_id", "t2"),
			},
		})
		require.NoError(t, err)
		require.Equal(t, `SELECT * FROM "users" WHERE "tenant_id" = $1 AND "tenant_id" = $2`, sql)
		require.Equal(t, []any{"t1", "t2"}, args)
	})

	t.Run("IN expansion", func(t *testing.T) {
		sql, args, err := buildSelect(tenantdb.Query{
			Table: "users",
			Where: []tenantdb.Cond{
				tenantdb.Eq("tenant_id", "t1"),
				tenantdb.In("id", "u1", "u2"),
			},
		})
		require.NoError(t, err)
		require.Equal(t, `SELECT * FROM "users" WHERE "tenant_id" = $1 AND "id" IN ($2, $3)`, sql)
		require.Equal(t, []any{"t1", "u1", "u2"}, args)
	})

	t.Run("empty IN matches nothing", func(t *testing.T) {
		sql, args, err := buildSelect(tenantdb.Query{
			Table: "users",
			Where: []tenantdb.Cond{tenantdb.In("id")},
		})
		require.NoError(t, err)
		require.Equal(t, `SELECT * FROM "users" WHERE false`, sql)
		require.Empty(t, args)
	})

	t.Run("rejects malicious identifiers", func(t *testing.T) {
		_, _, err := buildSelect(tenantdb.Query{Table: `users"; DROP TABLE users; --`})
		require.Error(t, err)

		_, _, err = buildSelect(tenantdb.Query{
			Table: "users",
			Where: []tenantdb.Cond{tenantdb.Eq("tenant_id = 'x' OR 1=1", "v")},
		})
		require.Error(t, err)
	})
}

func TestBuildInsert(t *testing.T) {
	sql, args, err := buildInsert("users", tenantdb.Row{
		"id":        "u1",
		"tenant_id": "t1",
		"email":     "ana@example.com",
	})
	require.NoError(t, err)
	require.Equal(t,
		`INSERT INTO "users" ("email", "id", "tenant_id") VALUES ($1, $2, $3) RETURNING *`,
		sql)
	require.Equal(t, []any{"ana@example.com", "u1", "t1"}, args)

	_, _, err = buildInsert("users", tenantdb.Row{})
	require.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := buildUpdate("memberships",
		tenantdb.Row{"role": "admin", "updated_at": "now"},
		[]tenantdb.Cond{
			tenantdb.Eq("tenant_id", "t1"),
			tenantdb.Eq("user_id", "u1"),
		},
	)
	require.NoError(t, err)
	require.Equal(t,
		`UPDATE "memberships" SET "role" = $1, "updated_at" = $2`+
			` WHERE "tenant_id" = $3 AND "user_id" = $4`,
		sql)
	require.Equal(t, []any{"admin", "now", "t1", "u1"}, args)
}

func TestBuildDelete(t *testing.T) {
	sql, args, err := buildDelete("invitations", []tenantdb.Cond{
		tenantdb.Eq("tenant_id", "t1"),
		tenantdb.Lt("expires_at", "cutoff"),
	})
	require.NoError(t, err)
	require.Equal(t,
		`DELETE FROM "invitations" WHERE "tenant_id" = $1 AND "expires_at" < $2`,
		sql)
	require.Equal(t, []any{"t1", "cutoff"}, args)
}
