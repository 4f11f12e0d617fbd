package uid

import "github.com/google/uuid"

// UUID generates UUID strings, preferring the time-ordered v7 form so ids
// used as correlation keys sort by creation.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string, falling back to v4 if the v7 clock
// sequence cannot be read.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
