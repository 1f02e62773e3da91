// Package storage provides the durable key→value cells the register keeps
// its state in. A Store is the raw persistence primitive; Cell adds typed,
// cached, write-through access on top of a single key.
package storage

import "context"

// Store persists opaque payloads per key. Implementations must make Save
// durable before returning; there is no cross-key atomicity, so callers
// performing related updates must write them at moments where partial
// application is tolerable.
type Store interface {
	// Load returns the payload for key, with false when the key is absent.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	// Save durably stores the payload for key, replacing any previous value.
	Save(ctx context.Context, key string, payload []byte) error
	Close() error
}
