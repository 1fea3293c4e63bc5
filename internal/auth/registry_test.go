package auth

import (
	"path/filepath"
	"strings"
	"testing"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := OpenRegistry(filepath.Join(t.TempDir(), "agents.db"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegisterIssuesKeyAndToken(t *testing.T) {
	r := openTestRegistry(t)
	agent, err := r.Register("Pinchy", "a test lobster")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(agent.APIKey, "awk_") {
		t.Fatalf("api key = %q", agent.APIKey)
	}
	if agent.ID == "" || agent.ClaimToken == "" {
		t.Fatalf("agent = %+v", agent)
	}

	if _, err := r.Register("", ""); err == nil {
		t.Fatalf("empty name accepted")
	}
	if _, err := r.Register(strings.Repeat("x", 51), ""); err == nil {
		t.Fatalf("oversized name accepted")
	}
}

func TestVerifyRequiresClaim(t *testing.T) {
	r := openTestRegistry(t)
	agent, err := r.Register("Pinchy", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	v, err := r.Verify(agent.APIKey)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Valid {
		t.Fatalf("unclaimed key verified")
	}
	if v.ClaimToken != agent.ClaimToken {
		t.Fatalf("claim token not surfaced: %+v", v)
	}

	res, err := r.Claim(agent.ClaimToken)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.AgentName != "Pinchy" || res.AlreadyClaimed {
		t.Fatalf("claim result = %+v", res)
	}

	v, err = r.Verify(agent.APIKey)
	if err != nil {
		t.Fatalf("verify after claim: %v", err)
	}
	if !v.Valid || v.AgentID != agent.ID || v.Name != "Pinchy" {
		t.Fatalf("verification = %+v", v)
	}
	if v.ClaimToken != "" {
		t.Fatalf("claim token leaked after claim")
	}
}

func TestClaimIsIdempotent(t *testing.T) {
	r := openTestRegistry(t)
	agent, _ := r.Register("Pinchy", "")
	if _, err := r.Claim(agent.ClaimToken); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	res, err := r.Claim(agent.ClaimToken)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !res.AlreadyClaimed {
		t.Fatalf("second claim not flagged: %+v", res)
	}

	if _, err := r.Claim("bogus-token"); err != ErrNotFound {
		t.Fatalf("bogus token err = %v, want ErrNotFound", err)
	}
}

func TestVerifyUnknownKey(t *testing.T) {
	r := openTestRegistry(t)
	v, err := r.Verify("awk_does_not_exist")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Valid || v.Error == "" {
		t.Fatalf("unknown key verification = %+v", v)
	}
}

func TestStatus(t *testing.T) {
	r := openTestRegistry(t)
	agent, _ := r.Register("Pinchy", "")

	s, err := r.Status(agent.APIKey)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !s.Exists || s.Claimed {
		t.Fatalf("status before claim = %+v", s)
	}

	_, _ = r.Claim(agent.ClaimToken)
	s, _ = r.Status(agent.APIKey)
	if !s.Exists || !s.Claimed || s.AgentName != "Pinchy" {
		t.Fatalf("status after claim = %+v", s)
	}

	s, _ = r.Status("awk_missing")
	if s.Exists {
		t.Fatalf("missing key reported as existing")
	}
}
