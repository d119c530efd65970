// Package uuid hands out row ids and normalizes ids received from clients.
// Ids are stored and compared as canonical lower-case strings.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a time-ordered UUIDv7, so keyset pagination by id follows
// creation order.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// Parse returns the canonical form of s.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}

// Canonical returns the canonical form of s, or s unchanged when it is not a
// UUID. Callers validate first; this only fixes case and braces.
func Canonical(s string) string {
	if c, err := Parse(s); err == nil {
		return c
	}
	return s
}

// CanonicalPtr is Canonical for optional ids. Nil and empty stay as they are.
func CanonicalPtr(s *string) *string {
	if s == nil || *s == "" {
		return s
	}
	c := Canonical(*s)
	return &c
}

// CanonicalAll applies Canonical to every id.
func CanonicalAll(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = Canonical(id)
	}
	return out
}
