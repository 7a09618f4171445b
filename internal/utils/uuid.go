package utils

import "github.com/google/uuid"

// UUIDGenerator produces client-side record identifiers. UUIDv7 keeps ids
// roughly time-ordered, which keeps the local records table append-friendly;
// a random v4 is the fallback when the clock source misbehaves.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
