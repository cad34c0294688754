// Package models defines the core data structures for derivation settings
// and their persisted form.
package models

import (
	"crypto/md5"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// MaxLength is the longest password a Setting may request.
const MaxLength = 99

// ErrUnknownFamily is returned when a hash family token is not recognized.
var ErrUnknownFamily = errors.New("unknown hash family")

// ErrInvalidLength is returned for lengths outside [0, MaxLength].
var ErrInvalidLength = errors.New("length out of range")

// HashFamily selects the digest used by derivation.
type HashFamily int

const (
	// MD5 selects the 128-bit MD5 digest.
	MD5 HashFamily = iota
	// SHA selects the 512-bit SHA-2 digest.
	SHA
)

// String returns the persisted token for the family.
func (f HashFamily) String() string {
	if f == SHA {
		return "SHA"
	}
	return "MD5"
}

// New returns a fresh hash.Hash for the family.
func (f HashFamily) New() hash.Hash {
	if f == SHA {
		return sha512.New()
	}
	return md5.New()
}

// ParseHashFamily parses a case-insensitive family token.
func ParseHashFamily(s string) (HashFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md5":
		return MD5, nil
	case "sha", "sha512":
		return SHA, nil
	}
	return MD5, fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// Setting is the effective derivation configuration for a domain.
type Setting struct {
	// Family is the digest used for every round.
	Family HashFamily
	// Length is the number of characters in the derived password.
	Length int
}

// Validate reports whether the setting is usable for derivation.
func (s Setting) Validate() error {
	if s.Length < 0 || s.Length > MaxLength {
		return fmt.Errorf("%w: %d", ErrInvalidLength, s.Length)
	}
	return nil
}

// DomainOverride replaces the default setting for one exact domain.
type DomainOverride struct {
	Domain  string
	Setting Setting
}

// Section is one named group of key/value pairs in the persisted settings map.
type Section struct {
	// Name is either the reserved defaults section or a domain.
	Name string
	// Values holds the raw string values as stored.
	Values map[string]string
}
