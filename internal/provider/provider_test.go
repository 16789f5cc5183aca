package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/dhawalhost/dirsync/internal/credential"
	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/record"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T) (*Provider, *record.MemStore) {
	t.Helper()
	store := record.NewMemStore()
	p, err := NewProvider(Config{
		Realm:      "master",
		ProviderID: "mysql-user-directory",
		ChunkSize:  50,
		MapNames:   true,
	}, store, identity.NewMemStore(), identity.NewMemAttributeStore(),
		credential.Policy{Algorithm: credential.AlgorithmBcrypt, Cost: 4}, zap.NewNop())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p, store
}

func TestNewProviderRejectsBadConfig(t *testing.T) {
	_, err := NewProvider(Config{Realm: "master", ProviderID: "p", ChunkSize: 0},
		record.NewMemStore(), identity.NewMemStore(), identity.NewMemAttributeStore(),
		credential.Policy{Algorithm: credential.AlgorithmBcrypt, Cost: 4}, zap.NewNop())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError before activation, got %v", err)
	}
}

func TestAddUserSetsDefaults(t *testing.T) {
	p, store := newTestProvider(t)
	ctx := context.Background()

	a, err := p.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}

	rec := a.Record()
	if rec.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if rec.Email != "alice" {
		t.Fatalf("email must default to username, got %q", rec.Email)
	}
	if rec.CompanyID != record.DefaultCompanyID ||
		rec.PartnerID != record.DefaultPartnerID ||
		rec.CreatedBy != record.DefaultCreatedBy {
		t.Fatalf("tenant defaults not applied: %+v", rec)
	}
	if rec.HasPassword() {
		t.Fatalf("registration must not set a credential")
	}

	stored, err := store.FindByUsername(ctx, "alice")
	if err != nil || stored.ID != rec.ID {
		t.Fatalf("record not persisted: %v", err)
	}
}

func TestGetUserByIDRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	a, err := p.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}

	got, err := p.GetUserByID(ctx, a.ID())
	if err != nil {
		t.Fatalf("get by composite id: %v", err)
	}
	if got.Record().ID != a.Record().ID {
		t.Fatalf("composite id resolved to wrong record")
	}
}

func TestGetUserByIDMissesForeignProvider(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.AddUser(ctx, "alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	_, err := p.GetUserByID(ctx, "f:other-provider:1")
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("expected not found for foreign provider id, got %v", err)
	}

	_, err = p.GetUserByID(ctx, "garbage")
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}

func TestVerifyCredentialsFailsClosed(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	// Unknown user.
	valid, err := p.VerifyCredentials(ctx, "ghost", "password")
	if err != nil || valid {
		t.Fatalf("expected fail-closed for unknown user, got valid=%v err=%v", valid, err)
	}

	// Known user, no credential set.
	if _, err := p.AddUser(ctx, "alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	valid, err = p.VerifyCredentials(ctx, "alice", "password")
	if err != nil || valid {
		t.Fatalf("expected fail-closed without stored hash, got valid=%v err=%v", valid, err)
	}
}

func TestCredentialLifecycleThroughProvider(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.AddUser(ctx, "alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	ok, err := p.UpdateCredential(ctx, "alice", "passw0rd")
	if err != nil || !ok {
		t.Fatalf("update credential: ok=%v err=%v", ok, err)
	}

	valid, err := p.VerifyCredentials(ctx, "alice", "passw0rd")
	if err != nil || !valid {
		t.Fatalf("expected credential to validate, got valid=%v err=%v", valid, err)
	}

	types, err := p.DisableableCredentialTypes(ctx, "alice")
	if err != nil || len(types) != 1 || types[0] != credential.TypePassword {
		t.Fatalf("expected [password], got %v err=%v", types, err)
	}

	if err := p.DisableCredential(ctx, "alice", credential.TypePassword); err != nil {
		t.Fatalf("disable: %v", err)
	}
	valid, _ = p.VerifyCredentials(ctx, "alice", "passw0rd")
	if valid {
		t.Fatalf("disabled credential must not validate")
	}
}

func TestOnCachePrimesPassword(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	a, err := p.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := p.UpdateCredential(ctx, "alice", "passw0rd"); err != nil {
		t.Fatalf("update credential: %v", err)
	}
	rec, err := p.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}

	cached := p.OnCache(&identity.User{ID: a.ID(), Username: "alice"}, rec.Record())
	hash, ok := cached.CurrentPasswordHash()
	if !ok || hash == "" {
		t.Fatalf("expected primed cache view")
	}

	// The cached view must satisfy the bridge without a record reload.
	if !p.Bridge().IsValid(cached, credential.TypePassword, "passw0rd") {
		t.Fatalf("expected cached credential check to pass")
	}
}

func TestRemoveUser(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	a, err := p.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}

	removed, err := p.RemoveUser(ctx, a.ID())
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}

	removed, err = p.RemoveUser(ctx, a.ID())
	if err != nil || removed {
		t.Fatalf("second remove must report missing, got removed=%v err=%v", removed, err)
	}
}

func TestSearchUsers(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "malice"} {
		if _, err := p.AddUser(ctx, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	all, err := p.SearchUsers(ctx, "*", 0, 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 users for wildcard, got %d err=%v", len(all), err)
	}

	matched, err := p.SearchUsers(ctx, "ALICE", 0, 10)
	if err != nil || len(matched) != 2 {
		t.Fatalf("expected case-insensitive substring match (alice, malice), got %d err=%v", len(matched), err)
	}

	count, err := p.UsersCount(ctx)
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d err=%v", count, err)
	}
}
