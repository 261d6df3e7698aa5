package epubpack

import "github.com/google/uuid"

// IDGenerator supplies unique book identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// FixedID returns a generator that always yields id.
func FixedID(id string) IDGenerator {
	return IDGeneratorFunc(func() string { return id })
}
