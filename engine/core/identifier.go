package core

import "github.com/google/uuid"

// Identifier tags long lived GPU objects so their lifetimes can be followed in the logs.
type Identifier struct {
	ID   uuid.UUID
	Kind string
}

func NewIdentifier(kind string) Identifier {
	return Identifier{
		ID:   uuid.New(),
		Kind: kind,
	}
}

// Short returns the first block of the uuid, enough to tell objects apart in a log line.
func (i Identifier) Short() string {
	return i.ID.String()[:8]
}

func (i Identifier) String() string {
	return i.Kind + "#" + i.Short()
}
