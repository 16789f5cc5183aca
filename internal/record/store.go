package record

import (
	"context"
	"time"
)

// Store defines typed access to the external legacy user table.
//
// Lookup misses return ErrNotFound. Storage failures (connectivity,
// constraint violations, timeouts) are returned as *StorageError.
// Every call is scoped to a single connection from the pool; no state
// is retained across calls.
type Store interface {
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// Search returns records matching pattern, ordered by username.
	// The pattern "*" matches every record; any other pattern is a
	// case-insensitive substring match against the username.
	Search(ctx context.Context, pattern string, offset, limit int) ([]UserRecord, error)

	// ListAll and ListChangedSince page through records ordered by id,
	// so repeated queries with an advancing offset neither skip nor
	// duplicate rows.
	ListAll(ctx context.Context, offset, limit int) ([]UserRecord, error)
	ListChangedSince(ctx context.Context, since time.Time, offset, limit int) ([]UserRecord, error)

	// LastSyncTime returns the high-water mark for incremental sync:
	// the maximum last-synced timestamp across all records. The zero
	// time is returned when no record has ever been synced.
	LastSyncTime(ctx context.Context) (time.Time, error)

	// Insert persists a new record, assigns its id and sets the fixed
	// tenant defaults. The password is left unset.
	Insert(ctx context.Context, rec *UserRecord) error

	// Update persists profile fields of an existing record. The
	// last-modified timestamp advances on every call.
	Update(ctx context.Context, rec *UserRecord) error

	// SetPassword overwrites the stored credential hash. A nil hash
	// clears the credential.
	SetPassword(ctx context.Context, id int64, hash *string) error

	// MarkSynced stamps the record's last-synced timestamp. The mark
	// only ever moves forward.
	MarkSynced(ctx context.Context, id int64, at time.Time) error

	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
