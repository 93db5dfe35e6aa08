package mutation

import "github.com/google/uuid"

// IDGenerator produces batch and snapshot identifiers.
type IDGenerator func() string

// NewID returns a UUIDv7: time-sortable, so batch IDs order like Seq.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
