package identity

// CachedUser is a cache view of an identity user. The host's cache
// layer may shadow a denormalized copy of the directory password hash
// alongside the user, so credential checks do not force a reload of
// the live record.
type CachedUser struct {
	User *User

	hash   string
	primed bool

	// live is consulted when no hash was primed into the cache view.
	live interface {
		CurrentPasswordHash() (string, bool)
	}
}

// NewCachedUser creates a cache view over the given user. live may be
// nil when no live record view is available.
func NewCachedUser(user *User, live interface {
	CurrentPasswordHash() (string, bool)
}) *CachedUser {
	return &CachedUser{User: user, live: live}
}

// PrimeCache stores the denormalized password hash on the cache view.
// Called by the host's cache-priming hook when the user enters cache.
func (c *CachedUser) PrimeCache(hash string) {
	c.hash = hash
	c.primed = true
}

// CurrentPasswordHash resolves the stored credential, cached copy
// first, then the live record.
func (c *CachedUser) CurrentPasswordHash() (string, bool) {
	if c.primed {
		return c.hash, c.hash != ""
	}
	if c.live != nil {
		return c.live.CurrentPasswordHash()
	}
	return "", false
}
