package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	access, jti, exp, err := p.IssueAccess("u1", "t1", "o1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || jti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
}

func TestTokenProvider_ValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, _, err := p.IssueAccess("u1", "t1", "o1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	id, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.UserID != "u1" || id.TenantID != "t1" || id.OrgID != "o1" {
		t.Errorf("ValidateAccess: got userID=%q tenantID=%q orgID=%q", id.UserID, id.TenantID, id.OrgID)
	}
}

func TestTokenProvider_ValidateAccess_NoOrg(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, _, err := p.IssueAccess("u1", "t1", "")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	id, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id.OrgID != "" {
		t.Errorf("org_id = %q, want empty", id.OrgID)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	_, err = p.ValidateAccess("invalid-token")
	if err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccess_MissingTenant(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, _, err := p.IssueAccess("u1", "", "o1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	_, err = p.ValidateAccess(access)
	if err != ErrInvalidToken {
		t.Errorf("token without tenant claim: want ErrInvalidToken, got %v", err)
	}
}
