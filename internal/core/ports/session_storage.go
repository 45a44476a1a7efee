package ports

import "context"

// Durable keys under which the session is persisted. Both are written and
// cleared together.
const (
	KeyCredential = "authToken"
	KeyIdentity   = "authUser"
)

// SessionStorage is the durable medium the session store persists to.
// Writes are last-writer-wins.
type SessionStorage interface {
	// Read returns the stored value and whether the key was present.
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	// Clear removes the given keys. Clearing absent keys is not an error.
	Clear(ctx context.Context, keys ...string) error
}
