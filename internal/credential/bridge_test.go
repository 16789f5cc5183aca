package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/dhawalhost/dirsync/internal/record"
	"go.uber.org/zap"
)

type staticSource struct {
	hash string
	set  bool
}

func (s staticSource) CurrentPasswordHash() (string, bool) { return s.hash, s.set }

func newTestBridge(t *testing.T) (*Bridge, *record.MemStore, *record.UserRecord) {
	t.Helper()
	store := record.NewMemStore()
	rec := &record.UserRecord{Username: "alice", Email: "alice@x.com"}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return NewBridge(store, zap.NewNop()), store, rec
}

func TestSupportsCredentialType(t *testing.T) {
	b, _, _ := newTestBridge(t)
	if !b.SupportsCredentialType(TypePassword) {
		t.Fatalf("expected password type to be supported")
	}
	if b.SupportsCredentialType("otp") {
		t.Fatalf("expected otp type to be unsupported")
	}
}

func TestIsValidFailsClosedWithoutStoredHash(t *testing.T) {
	b, _, _ := newTestBridge(t)
	if b.IsValid(staticSource{}, TypePassword, "anything") {
		t.Fatalf("expected validation to fail for a user with no credential")
	}
}

func TestIsValidRejectsUnsupportedType(t *testing.T) {
	b, _, _ := newTestBridge(t)
	var h Hasher
	hash, _ := h.Hash("password", 4)
	if b.IsValid(staticSource{hash: hash, set: true}, "otp", "password") {
		t.Fatalf("expected unsupported credential type to fail")
	}
}

func TestUpdateAndValidateCredential(t *testing.T) {
	b, store, rec := newTestBridge(t)
	ctx := context.Background()

	ok, err := b.UpdateCredential(ctx, rec, TypePassword, "passw0rd", Policy{Algorithm: AlgorithmBcrypt, Cost: 4})
	if err != nil || !ok {
		t.Fatalf("update credential: ok=%v err=%v", ok, err)
	}

	stored, err := store.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.HasPassword() {
		t.Fatalf("expected stored credential after update")
	}

	if !b.IsValid(staticSource{hash: *stored.PasswordHash, set: true}, TypePassword, "passw0rd") {
		t.Fatalf("expected updated credential to validate")
	}
	if b.IsValid(staticSource{hash: *stored.PasswordHash, set: true}, TypePassword, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestUpdateCredentialUnsupportedTypeDoesNotWrite(t *testing.T) {
	b, store, rec := newTestBridge(t)
	ctx := context.Background()

	ok, err := b.UpdateCredential(ctx, rec, "otp", "123456", Policy{Algorithm: AlgorithmBcrypt, Cost: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected update to be refused for unsupported type")
	}

	stored, _ := store.FindByID(ctx, rec.ID)
	if stored.HasPassword() {
		t.Fatalf("no credential may be written for an unsupported type")
	}
}

func TestUpdateCredentialUnsupportedAlgorithmFailsClosed(t *testing.T) {
	b, store, rec := newTestBridge(t)
	ctx := context.Background()

	ok, err := b.UpdateCredential(ctx, rec, TypePassword, "passw0rd", Policy{Algorithm: "argon2id", Cost: 4})
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
	if ok {
		t.Fatalf("expected update to fail")
	}

	stored, _ := store.FindByID(ctx, rec.ID)
	if stored.HasPassword() {
		t.Fatalf("no credential may be written when the hash cannot be verified back")
	}
}

func TestDisableCredentialClearsHash(t *testing.T) {
	b, store, rec := newTestBridge(t)
	ctx := context.Background()

	if _, err := b.UpdateCredential(ctx, rec, TypePassword, "passw0rd", Policy{Algorithm: AlgorithmBcrypt, Cost: 4}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := b.DisableableCredentialTypes(rec); len(got) != 1 || got[0] != TypePassword {
		t.Fatalf("expected [password], got %v", got)
	}

	if err := b.DisableCredentialType(ctx, rec, TypePassword); err != nil {
		t.Fatalf("disable: %v", err)
	}

	stored, _ := store.FindByID(ctx, rec.ID)
	if stored.HasPassword() {
		t.Fatalf("expected credential to be cleared")
	}
	if got := b.DisableableCredentialTypes(stored); len(got) != 0 {
		t.Fatalf("a disabled credential must look never-set, got %v", got)
	}
}
