package credential_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/store/memory"
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T) (*credential.Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	return credential.NewService(s, nil), s
}

func TestIssueReturnsSecretOnce(t *testing.T) {
	svc, _ := setup(t)

	issued, err := svc.Issue(ctx(), credential.Input{
		TenantID: "t1",
		Name:     "ci",
		Tier:     credential.TierPro,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(issued.Secret, "sk_pro_") {
		t.Fatalf("unexpected secret prefix: %q", issued.Secret)
	}
	if issued.Credential.SecretHash == issued.Secret {
		t.Fatal("plaintext secret must not be stored")
	}
	if !strings.HasPrefix(issued.Secret, issued.Credential.KeyPrefix) {
		t.Fatalf("key prefix %q is not a prefix of the secret", issued.Credential.KeyPrefix)
	}

	// The hash must never serialize.
	raw, err := json.Marshal(issued.Credential)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), issued.Credential.SecretHash) {
		t.Fatal("secret hash leaked into credential JSON")
	}
}

func TestIssueValidation(t *testing.T) {
	svc, _ := setup(t)

	if _, err := svc.Issue(ctx(), credential.Input{Name: "x", Tier: credential.TierFree}); err == nil {
		t.Fatal("missing tenant_id should fail")
	}
	if _, err := svc.Issue(ctx(), credential.Input{TenantID: "t1", Tier: credential.TierFree}); err == nil {
		t.Fatal("missing name should fail")
	}
	if _, err := svc.Issue(ctx(), credential.Input{TenantID: "t1", Name: "x", Tier: credential.Tier(42)}); err == nil {
		t.Fatal("unknown tier should fail")
	}
}

func TestResolveStampsLastUsed(t *testing.T) {
	svc, _ := setup(t)

	issued, err := svc.Issue(ctx(), credential.Input{
		TenantID: "t1",
		Name:     "app",
		Tier:     credential.TierFree,
	})
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := svc.Resolve(ctx(), issued.Secret)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.ID != issued.Credential.ID {
		t.Fatal("resolved wrong credential")
	}

	again, err := svc.Get(ctx(), resolved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.LastUsedAt == nil {
		t.Fatal("LastUsedAt should be stamped after Resolve")
	}
}

func TestResolveUnknownSecret(t *testing.T) {
	svc, _ := setup(t)

	if _, err := svc.Resolve(ctx(), "sk_free_doesnotexist"); err == nil {
		t.Fatal("unknown secret should not resolve")
	}
}

func TestRevokeIsTerminal(t *testing.T) {
	svc, _ := setup(t)

	issued, err := svc.Issue(ctx(), credential.Input{
		TenantID: "t1",
		Name:     "old",
		Tier:     credential.TierStarter,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Revoke(ctx(), issued.Credential.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Resolve(ctx(), issued.Secret); err == nil {
		t.Fatal("revoked credential should not resolve")
	}
}
