package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "tenantcore-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "tenantcore-auth")
	}
	if cfg.JWTAudience != "tenantcore-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "tenantcore-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.InvitationTTL != "72h" {
		t.Errorf("InvitationTTL = %q, want %q", cfg.InvitationTTL, "72h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SystemKeys != "" {
		t.Errorf("SystemKeys = %q, want empty", cfg.SystemKeys)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_BcryptCostRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_SystemKeys(t *testing.T) {
	os.Clearenv()
	os.Setenv("SYSTEM_KEYS", "ops-1:$2a$12$digestone, ops-2:$2a$12$digesttwo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	digests := cfg.SystemKeyDigests()
	if len(digests) != 2 {
		t.Fatalf("SystemKeyDigests len = %d, want 2", len(digests))
	}
	if digests["ops-1"] != "$2a$12$digestone" {
		t.Errorf("digest for ops-1 = %q, want %q", digests["ops-1"], "$2a$12$digestone")
	}
	if digests["ops-2"] != "$2a$12$digesttwo" {
		t.Errorf("digest for ops-2 = %q, want %q", digests["ops-2"], "$2a$12$digesttwo")
	}
}

func TestLoad_SystemKeysMalformed(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"missing digest", "ops-1"},
		{"empty actor", ":$2a$12$digest"},
		{"empty digest", "ops-1:"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("SYSTEM_KEYS", tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load with SYSTEM_KEYS=%q should return error", tc.value)
			}
		})
	}
}

func TestLoad_SystemKeysEmpty(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if digests := cfg.SystemKeyDigests(); len(digests) != 0 {
		t.Errorf("SystemKeyDigests = %v, want empty", digests)
	}
}

func TestAccessTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_ACCESS_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.AccessTTL(); ttl != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", ttl, 30*time.Minute)
	}
}

func TestAccessTTL_InvalidDuration(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"garbage", "invalid"},
		{"zero", "0"},
		{"negative", "-5m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_ACCESS_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if ttl := cfg.AccessTTL(); ttl != 15*time.Minute {
				t.Errorf("AccessTTL = %v, want %v (default)", ttl, 15*time.Minute)
			}
		})
	}
}

func TestInviteTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("INVITATION_TTL", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.InviteTTL(); ttl != 24*time.Hour {
		t.Errorf("InviteTTL = %v, want %v", ttl, 24*time.Hour)
	}
}

func TestInviteTTL_InvalidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("INVITATION_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.InviteTTL(); ttl != 72*time.Hour {
		t.Errorf("InviteTTL = %v, want %v (default)", ttl, 72*time.Hour)
	}
}
