// Package adapter maps directory records onto the identity-provider
// user-model shape: composite ids, profile fields, and a small set of
// custom attributes backed by dedicated record fields.
package adapter

import (
	"context"
	"strconv"
	"time"

	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/record"
)

// Custom attribute names intercepted by the adapter. Every other name
// is delegated to the host's generic per-user attribute storage.
const (
	AttrStatus      = "status"
	AttrMobilePhone = "mobilePhone"
	AttrOfficePhone = "officePhone"
	AttrOldUserID   = "oldUserId"
)

// fieldAccessor binds one intercepted attribute name to its dedicated
// record field.
type fieldAccessor struct {
	get func(*record.UserRecord) string
	set func(*record.UserRecord, string)
}

var mappedAttributes = map[string]fieldAccessor{
	AttrStatus: {
		get: func(r *record.UserRecord) string { return r.Status },
		set: func(r *record.UserRecord, v string) { r.Status = v },
	},
	AttrMobilePhone: {
		get: func(r *record.UserRecord) string { return r.MobilePhone },
		set: func(r *record.UserRecord, v string) { r.MobilePhone = v },
	},
	AttrOfficePhone: {
		get: func(r *record.UserRecord) string { return r.OfficePhone },
		set: func(r *record.UserRecord, v string) { r.OfficePhone = v },
	},
	AttrOldUserID: {
		get: func(r *record.UserRecord) string { return strconv.FormatInt(r.ID, 10) },
		// Record ids are immutable.
		set: func(*record.UserRecord, string) {},
	},
}

// Config carries the deployment options of the adapter.
type Config struct {
	// ProviderID identifies this storage provider inside composite
	// user ids.
	ProviderID string

	// MapNames maps first/last name onto the dedicated record fields.
	// When false, name attributes pass through to the generic
	// attribute store instead.
	MapNames bool
}

// Adapter exposes one directory record as an identity-provider-shaped
// user.
type Adapter struct {
	rec   *record.UserRecord
	attrs identity.AttributeStore
	cfg   Config
	id    StorageID
}

// New wraps a directory record.
func New(rec *record.UserRecord, attrs identity.AttributeStore, cfg Config) *Adapter {
	return &Adapter{
		rec:   rec,
		attrs: attrs,
		cfg:   cfg,
		id:    StorageID{ProviderID: cfg.ProviderID, ExternalID: rec.ID},
	}
}

// Record returns the wrapped directory record.
func (a *Adapter) Record() *record.UserRecord { return a.rec }

// ID returns the composite externally-visible user id.
func (a *Adapter) ID() string { return a.id.String() }

func (a *Adapter) Username() string { return a.rec.Username }

func (a *Adapter) SetUsername(username string) { a.rec.Username = username }

func (a *Adapter) Email() string { return a.rec.Email }

func (a *Adapter) SetEmail(email string) { a.rec.Email = email }

// CreatedTimestamp returns the record's creation time, which maps to
// the identity user's created-timestamp.
func (a *Adapter) CreatedTimestamp() time.Time { return a.rec.CreatedAt }

func (a *Adapter) SetCreatedTimestamp(t time.Time) { a.rec.CreatedAt = t }

// FirstName resolves against the record field or the generic
// attribute store, depending on the MapNames deployment option.
func (a *Adapter) FirstName(ctx context.Context) (string, error) {
	if a.cfg.MapNames {
		return a.rec.FirstName, nil
	}
	return a.firstOf(ctx, "firstName")
}

func (a *Adapter) SetFirstName(ctx context.Context, name string) error {
	if a.cfg.MapNames {
		a.rec.FirstName = name
		return nil
	}
	return a.attrs.Set(ctx, a.ID(), "firstName", []string{name})
}

func (a *Adapter) LastName(ctx context.Context) (string, error) {
	if a.cfg.MapNames {
		return a.rec.LastName, nil
	}
	return a.firstOf(ctx, "lastName")
}

func (a *Adapter) SetLastName(ctx context.Context, name string) error {
	if a.cfg.MapNames {
		a.rec.LastName = name
		return nil
	}
	return a.attrs.Set(ctx, a.ID(), "lastName", []string{name})
}

// CurrentPasswordHash exposes the stored credential for the bridge.
func (a *Adapter) CurrentPasswordHash() (string, bool) {
	if !a.rec.HasPassword() {
		return "", false
	}
	return *a.rec.PasswordHash, true
}

// FirstAttribute returns the first value of the named attribute.
func (a *Adapter) FirstAttribute(ctx context.Context, name string) (string, error) {
	if acc, ok := mappedAttributes[name]; ok {
		return acc.get(a.rec), nil
	}
	return a.firstOf(ctx, name)
}

// SetSingleAttribute replaces the attribute with a single value.
func (a *Adapter) SetSingleAttribute(ctx context.Context, name, value string) error {
	if acc, ok := mappedAttributes[name]; ok {
		acc.set(a.rec, value)
		return nil
	}
	return a.attrs.Set(ctx, a.ID(), name, []string{value})
}

// SetAttribute replaces all values of the attribute. Intercepted
// attributes are single-valued and keep the first value.
func (a *Adapter) SetAttribute(ctx context.Context, name string, values []string) error {
	if acc, ok := mappedAttributes[name]; ok {
		if len(values) > 0 {
			acc.set(a.rec, values[0])
		} else {
			acc.set(a.rec, "")
		}
		return nil
	}
	return a.attrs.Set(ctx, a.ID(), name, values)
}

// RemoveAttribute clears the attribute.
func (a *Adapter) RemoveAttribute(ctx context.Context, name string) error {
	if acc, ok := mappedAttributes[name]; ok {
		acc.set(a.rec, "")
		return nil
	}
	return a.attrs.Remove(ctx, a.ID(), name)
}

// Attributes lists all attributes: the generic store's bag overlaid
// with the intercepted record-backed names.
func (a *Adapter) Attributes(ctx context.Context) (map[string][]string, error) {
	all, err := a.attrs.List(ctx, a.ID())
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string][]string)
	}
	for name, acc := range mappedAttributes {
		if v := acc.get(a.rec); v != "" {
			all[name] = []string{v}
		}
	}
	return all, nil
}

func (a *Adapter) firstOf(ctx context.Context, name string) (string, error) {
	vals, err := a.attrs.Get(ctx, a.ID(), name)
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", nil
	}
	return vals[0], nil
}
