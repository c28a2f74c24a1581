// Package id generates prefixed identifiers for rating sessions, SSE clients
// and outbound request correlation.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used across the server.
const (
	PrefixSession = "rs"
	PrefixClient  = "sse"
)

// alphabet omits '-' and '_' so the separator stays unambiguous.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Length of the random part.
const Length = 16

// Generate creates a prefixed unique ID, e.g. "rs-V1StGXR8Z5jdHi6B".
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id was generated with prefix.
func HasPrefix(id, prefix string) bool {
	return len(id) == len(prefix)+1+Length && id[:len(prefix)+1] == prefix+"-"
}
