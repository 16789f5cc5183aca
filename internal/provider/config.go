package provider

import (
	"fmt"
	"strconv"
	"time"
)

// ChunkSizeOptions are the page sizes offered to the host's
// configuration screen.
var ChunkSizeOptions = []int{50, 100, 150, 200}

// ValidationError reports a misconfigured provider. It blocks
// activation entirely: no sync runs until the configuration is fixed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid provider configuration: %s: %s", e.Field, e.Reason)
}

// Config holds the provider's deployment configuration.
type Config struct {
	// Realm is the identity-provider realm this provider serves.
	Realm string

	// ProviderID identifies this storage provider in composite user
	// ids.
	ProviderID string

	// ChunkSize is the number of records fetched per batch during
	// sync runs.
	ChunkSize int

	// MapNames maps first/last name to the dedicated record fields.
	MapNames bool

	// FullSyncPeriod and ChangedSyncPeriod drive the host timers.
	// Zero disables the corresponding timer.
	FullSyncPeriod    time.Duration
	ChangedSyncPeriod time.Duration
}

// ParseChunkSize parses the host-supplied chunk size option. The raw
// value must be a positive integer; anything else is a
// *ValidationError with a descriptive reason, never a silent default.
func ParseChunkSize(raw string) (int, error) {
	if raw == "" {
		return 0, &ValidationError{Field: "chunk size", Reason: "not set"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "chunk size", Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	if n <= 0 {
		return 0, &ValidationError{Field: "chunk size", Reason: fmt.Sprintf("%d is not positive", n)}
	}
	return n, nil
}

// Validate checks the configuration before the provider is activated.
func (c Config) Validate() error {
	if c.Realm == "" {
		return &ValidationError{Field: "realm", Reason: "not set"}
	}
	if c.ProviderID == "" {
		return &ValidationError{Field: "provider id", Reason: "not set"}
	}
	if c.ChunkSize <= 0 {
		return &ValidationError{Field: "chunk size", Reason: fmt.Sprintf("%d is not positive", c.ChunkSize)}
	}
	return nil
}
