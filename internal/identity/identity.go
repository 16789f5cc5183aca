// Package identity defines the interfaces through which the directory
// core talks to the host identity provider's user store. The host owns
// these users; this package only describes the narrow contract the
// synchronization engine and adapter rely on.
package identity

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = errors.New("identity user not found")

// User is the identity-provider-side user object visible to
// applications.
type User struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	CreatedAt     time.Time
	Attributes    map[string][]string
}

// SetAttribute replaces all values of the named attribute with a
// single value.
func (u *User) SetAttribute(name, value string) {
	if u.Attributes == nil {
		u.Attributes = make(map[string][]string)
	}
	u.Attributes[name] = []string{value}
}

// FirstAttribute returns the first value of the named attribute, or ""
// when unset.
func (u *User) FirstAttribute(name string) string {
	if vals := u.Attributes[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Store is the host identity provider's user store.
type Store interface {
	// FindByUsername returns the user with the given username in the
	// realm, or ErrNotFound.
	FindByUsername(ctx context.Context, realm, username string) (*User, error)

	// Create registers a new user with the given username and returns
	// it with an assigned id.
	Create(ctx context.Context, realm, username string) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, realm string, user *User) error
}

// AttributeStore is the host's generic per-user attribute storage, the
// fallback for attribute names the directory does not map to dedicated
// record fields.
type AttributeStore interface {
	Get(ctx context.Context, userID, name string) ([]string, error)
	Set(ctx context.Context, userID, name string, values []string) error
	Remove(ctx context.Context, userID, name string) error
	List(ctx context.Context, userID string) (map[string][]string, error)
}
