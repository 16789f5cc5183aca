package credential

import (
	"context"
	"errors"

	"github.com/dhawalhost/dirsync/internal/record"
	"go.uber.org/zap"
)

// TypePassword is the only credential type the directory supports.
const TypePassword = "password"

// ErrUnsupportedCredentialType is returned by bridge operations
// invoked with a credential type other than password.
var ErrUnsupportedCredentialType = errors.New("unsupported credential type")

// CurrentPasswordSource exposes the stored password hash of one user
// view. Both the live record adapter and the identity cache view
// implement it, so the bridge never needs to inspect which kind of
// view it was handed.
type CurrentPasswordSource interface {
	// CurrentPasswordHash returns the stored hash and whether a
	// credential is set.
	CurrentPasswordHash() (string, bool)
}

// Bridge validates and updates directory credentials on behalf of the
// host identity provider.
type Bridge struct {
	store  record.Store
	hasher Hasher
	logger *zap.Logger
}

// NewBridge creates a credential bridge over the given record store.
func NewBridge(store record.Store, logger *zap.Logger) *Bridge {
	return &Bridge{store: store, logger: logger}
}

// SupportsCredentialType reports whether the bridge can handle the
// given credential type.
func (b *Bridge) SupportsCredentialType(credType string) bool {
	return credType == TypePassword
}

// IsValid checks the supplied plaintext against the user's stored
// hash. A user with no stored credential always fails closed, without
// invoking the verify routine.
func (b *Bridge) IsValid(src CurrentPasswordSource, credType, plaintext string) bool {
	if !b.SupportsCredentialType(credType) {
		return false
	}
	hash, ok := src.CurrentPasswordHash()
	if !ok {
		return false
	}
	return b.hasher.Verify(plaintext, hash)
}

// UpdateCredential hashes the new plaintext under the policy and
// overwrites the stored credential. It returns false without writing
// when the credential type is unsupported, and fails without writing
// when the policy requests an algorithm the hasher does not implement.
func (b *Bridge) UpdateCredential(ctx context.Context, rec *record.UserRecord, credType, plaintext string, policy Policy) (bool, error) {
	if !b.SupportsCredentialType(credType) {
		return false, nil
	}

	hash, err := b.hasher.HashWithPolicy(plaintext, policy)
	if err != nil {
		return false, err
	}

	if err := b.store.SetPassword(ctx, rec.ID, &hash); err != nil {
		return false, err
	}
	rec.PasswordHash = &hash

	b.logger.Info("credential updated", zap.Int64("user_id", rec.ID))
	return true, nil
}

// DisableCredentialType clears the stored hash. A disabled credential
// is indistinguishable from one never set. Unsupported types are a
// no-op.
func (b *Bridge) DisableCredentialType(ctx context.Context, rec *record.UserRecord, credType string) error {
	if !b.SupportsCredentialType(credType) {
		return nil
	}
	if err := b.store.SetPassword(ctx, rec.ID, nil); err != nil {
		return err
	}
	rec.PasswordHash = nil
	return nil
}

// DisableableCredentialTypes returns the credential types currently
// set on the record, which is the password type iff a hash is stored.
func (b *Bridge) DisableableCredentialTypes(rec *record.UserRecord) []string {
	if rec.HasPassword() {
		return []string{TypePassword}
	}
	return nil
}
