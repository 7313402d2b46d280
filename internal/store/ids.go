package store

import "github.com/google/uuid"

// IDGenerator produces unique entry IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDs, so IDs sort in roughly
// the order entries were written.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
