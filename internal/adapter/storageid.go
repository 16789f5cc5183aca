package adapter

import (
	"fmt"
	"strconv"
	"strings"
)

// storageIDPrefix marks an externally-visible user id as belonging to
// a federated storage provider.
const storageIDPrefix = "f"

// StorageID is the composite externally-visible user id: the storage
// provider identifier plus the directory record's internal id. The
// host identity provider can always map it back to exactly one
// (provider, record) pair.
type StorageID struct {
	ProviderID string
	ExternalID int64
}

// String renders the composite id. Parse inverts it exactly.
func (s StorageID) String() string {
	return storageIDPrefix + ":" + s.ProviderID + ":" + strconv.FormatInt(s.ExternalID, 10)
}

// ParseStorageID parses a composite user id produced by String.
func ParseStorageID(id string) (StorageID, error) {
	rest, ok := strings.CutPrefix(id, storageIDPrefix+":")
	if !ok {
		return StorageID{}, fmt.Errorf("malformed storage id %q", id)
	}

	// The record id is everything after the last separator; the
	// provider id may itself contain separators.
	sep := strings.LastIndexByte(rest, ':')
	if sep < 0 {
		return StorageID{}, fmt.Errorf("malformed storage id %q", id)
	}

	providerID := rest[:sep]
	externalID, err := strconv.ParseInt(rest[sep+1:], 10, 64)
	if err != nil || providerID == "" {
		return StorageID{}, fmt.Errorf("malformed storage id %q", id)
	}

	return StorageID{ProviderID: providerID, ExternalID: externalID}, nil
}
