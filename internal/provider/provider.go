// Package provider assembles the directory store, credential bridge,
// adapter and synchronization engine into the surface the host
// identity provider consumes.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/dhawalhost/dirsync/internal/adapter"
	"github.com/dhawalhost/dirsync/internal/credential"
	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/record"
	"github.com/dhawalhost/dirsync/internal/sync"
	"go.uber.org/zap"
)

// Provider is the user-storage provider: lookup, registration, query,
// credential and sync entry points over one directory store instance.
type Provider struct {
	cfg        Config
	store      record.Store
	identities identity.Store
	attrs      identity.AttributeStore
	bridge     *credential.Bridge
	engine     *sync.Engine
	policy     credential.Policy
	logger     *zap.Logger
}

// NewProvider validates the configuration and wires the provider.
// A misconfigured provider is rejected before any sync can run.
func NewProvider(cfg Config, store record.Store, identities identity.Store, attrs identity.AttributeStore, policy credential.Policy, logger *zap.Logger) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := sync.NewEngine(store, identities, sync.Config{
		Realm:     cfg.Realm,
		ChunkSize: cfg.ChunkSize,
		MapNames:  cfg.MapNames,
	}, logger)

	return &Provider{
		cfg:        cfg,
		store:      store,
		identities: identities,
		attrs:      attrs,
		bridge:     credential.NewBridge(store, logger),
		engine:     engine,
		policy:     policy,
		logger:     logger,
	}, nil
}

// Engine exposes the synchronization engine for scheduling and
// observability wiring.
func (p *Provider) Engine() *sync.Engine { return p.engine }

// Bridge exposes the credential bridge.
func (p *Provider) Bridge() *credential.Bridge { return p.bridge }

func (p *Provider) adapterFor(rec *record.UserRecord) *adapter.Adapter {
	return adapter.New(rec, p.attrs, adapter.Config{
		ProviderID: p.cfg.ProviderID,
		MapNames:   p.cfg.MapNames,
	})
}

// GetUserByID resolves a composite user id back to its directory
// record. Ids minted by another provider miss rather than fail.
func (p *Provider) GetUserByID(ctx context.Context, id string) (*adapter.Adapter, error) {
	sid, err := adapter.ParseStorageID(id)
	if err != nil {
		return nil, record.ErrNotFound
	}
	if sid.ProviderID != p.cfg.ProviderID {
		return nil, record.ErrNotFound
	}
	rec, err := p.store.FindByID(ctx, sid.ExternalID)
	if err != nil {
		return nil, err
	}
	return p.adapterFor(rec), nil
}

// GetUserByUsername looks up a directory record by its username.
func (p *Provider) GetUserByUsername(ctx context.Context, username string) (*adapter.Adapter, error) {
	rec, err := p.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return p.adapterFor(rec), nil
}

// GetUserByEmail looks up a directory record by its email.
func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*adapter.Adapter, error) {
	rec, err := p.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return p.adapterFor(rec), nil
}

// AddUser registers a new directory record from the identity
// provider's registration path. The email defaults to the username
// and no credential is set.
func (p *Provider) AddUser(ctx context.Context, username string) (*adapter.Adapter, error) {
	rec := &record.UserRecord{
		Username:  username,
		Email:     username,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	p.logger.Info("directory user registered",
		zap.Int64("record_id", rec.ID),
		zap.String("username", username))
	return p.adapterFor(rec), nil
}

// RemoveUser deletes the directory record behind the composite id and
// reports whether it existed.
func (p *Provider) RemoveUser(ctx context.Context, id string) (bool, error) {
	sid, err := adapter.ParseStorageID(id)
	if err != nil || sid.ProviderID != p.cfg.ProviderID {
		return false, nil
	}
	return p.store.Delete(ctx, sid.ExternalID)
}

// UsersCount returns the total number of directory records.
func (p *Provider) UsersCount(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}

// SearchUsers pages through records matching the pattern; "*" matches
// everything.
func (p *Provider) SearchUsers(ctx context.Context, pattern string, offset, limit int) ([]*adapter.Adapter, error) {
	recs, err := p.store.Search(ctx, pattern, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*adapter.Adapter, len(recs))
	for i := range recs {
		out[i] = p.adapterFor(&recs[i])
	}
	return out, nil
}

// VerifyCredentials validates the supplied password for the given
// username. Unknown users and users with no stored credential fail
// closed.
func (p *Provider) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	rec, err := p.store.FindByUsername(ctx, username)
	if errors.Is(err, record.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.bridge.IsValid(p.adapterFor(rec), credential.TypePassword, password), nil
}

// UpdateCredential overwrites the stored password under the
// configured policy.
func (p *Provider) UpdateCredential(ctx context.Context, username, password string) (bool, error) {
	rec, err := p.store.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return p.bridge.UpdateCredential(ctx, rec, credential.TypePassword, password, p.policy)
}

// DisableCredential clears the stored credential of the given type.
func (p *Provider) DisableCredential(ctx context.Context, username, credType string) error {
	rec, err := p.store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	return p.bridge.DisableCredentialType(ctx, rec, credType)
}

// DisableableCredentialTypes lists the credential types currently set
// for the given username.
func (p *Provider) DisableableCredentialTypes(ctx context.Context, username string) ([]string, error) {
	rec, err := p.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return p.bridge.DisableableCredentialTypes(rec), nil
}

// OnCache is the cache-priming hook: when the host caches a user, the
// stored password hash is denormalized onto the cache view so later
// credential checks skip the record reload.
func (p *Provider) OnCache(user *identity.User, rec *record.UserRecord) *identity.CachedUser {
	cached := identity.NewCachedUser(user, p.adapterFor(rec))
	if rec.HasPassword() {
		cached.PrimeCache(*rec.PasswordHash)
	}
	return cached
}

// SyncFull runs a full synchronization.
func (p *Provider) SyncFull(ctx context.Context) (sync.Result, error) {
	return p.engine.SyncFull(ctx)
}

// SyncChanged runs an incremental synchronization from the high-water
// mark.
func (p *Provider) SyncChanged(ctx context.Context) (sync.Result, error) {
	return p.engine.SyncChanged(ctx)
}
