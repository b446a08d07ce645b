package ports

import "context"

// KeyValueStore is the durable device store shared by every component. Keys
// are partitioned by fixed, non-overlapping prefixes per component, so no
// cross-component coordination is needed. Implementations must be safe for
// concurrent use and must survive process restarts.
type KeyValueStore interface {
	// Get returns the stored bytes for key; the bool is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set durably stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
