// Package idgen generates document identifiers and request IDs backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet matches the character set of document-store auto IDs.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DocumentIDLength is the length of generated document IDs.
	DocumentIDLength = 20
	// ShortIDLength is the length of generated request IDs.
	ShortIDLength = 8
)

// DocumentID returns a new 20-character document ID.
func DocumentID() (string, error) {
	id, err := nanoid.Generate(Alphabet, DocumentIDLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// ShortID returns an 8-character ID. It never fails; on a read error from the
// random source it falls back to a fixed placeholder.
func ShortID() string {
	id, err := nanoid.Generate(Alphabet, ShortIDLength)
	if err != nil {
		return "00000000"
	}
	return id
}
