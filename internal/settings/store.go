// Package settings holds the default derivation setting and the per-domain
// overrides, and resolves the effective setting for a domain.
package settings

import (
	"errors"
	"fmt"

	"github.com/atinyakov/esgp/internal/models"
)

// DefaultsSection is the reserved section name holding the global default.
const DefaultsSection = "defaults"

// ImplicitSection is the name INI files give to keys outside any section.
// A domain with this name cannot be stored as a section of its own.
const ImplicitSection = "DEFAULT"

// ErrIndexOutOfRange is returned by edits addressing a missing override row.
var ErrIndexOutOfRange = errors.New("override index out of range")

// ErrReservedDomain is returned when an override uses a section name the
// persisted map reserves.
var ErrReservedDomain = errors.New("domain name is reserved")

// BuiltinDefault is used when nothing was persisted.
var BuiltinDefault = models.Setting{Family: models.MD5, Length: 10}

// Store is the settings cascade: a default plus ordered domain overrides.
// The bootstrap layer owns the single instance and passes it explicitly.
type Store struct {
	Default   models.Setting
	Overrides []models.DomainOverride
}

// New returns a store with the built-in default and no overrides.
func New() *Store {
	return &Store{Default: BuiltinDefault, Overrides: []models.DomainOverride{}}
}

// Resolve returns the setting of the first override whose domain equals
// domain exactly, or the default.
func (s *Store) Resolve(domain string) models.Setting {
	for _, o := range s.Overrides {
		if o.Domain == domain {
			return o.Setting
		}
	}
	return s.Default
}

// NewOverride returns an override row for domain pre-filled with the current default.
func (s *Store) NewOverride(domain string) models.DomainOverride {
	return models.DomainOverride{Domain: domain, Setting: s.Default}
}

// SetDefault replaces the global default.
func (s *Store) SetDefault(setting models.Setting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	s.Default = setting
	return nil
}

// Append adds an override at the end of the list.
func (s *Store) Append(o models.DomainOverride) error {
	return s.Insert(len(s.Overrides), o)
}

// Insert places o at index i, shifting later rows down.
func (s *Store) Insert(i int, o models.DomainOverride) error {
	if i < 0 || i > len(s.Overrides) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if err := checkOverride(o); err != nil {
		return err
	}
	rows := make([]models.DomainOverride, 0, len(s.Overrides)+1)
	rows = append(rows, s.Overrides[:i]...)
	rows = append(rows, o)
	rows = append(rows, s.Overrides[i:]...)
	s.Overrides = rows
	return nil
}

// Replace swaps the row at index i for o.
func (s *Store) Replace(i int, o models.DomainOverride) error {
	if i < 0 || i >= len(s.Overrides) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if err := checkOverride(o); err != nil {
		return err
	}
	s.Overrides[i] = o
	return nil
}

// Remove deletes the row at index i.
func (s *Store) Remove(i int) error {
	if i < 0 || i >= len(s.Overrides) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.Overrides = append(s.Overrides[:i:i], s.Overrides[i+1:]...)
	return nil
}

// checkOverride allows an empty domain: the editor may add a blank row
// that is filled in later. Save skips rows that are still blank.
func checkOverride(o models.DomainOverride) error {
	if IsReserved(o.Domain) {
		return fmt.Errorf("%w: %q", ErrReservedDomain, o.Domain)
	}
	return o.Setting.Validate()
}

// IsReserved reports whether domain collides with a reserved section name.
func IsReserved(domain string) bool {
	return domain == DefaultsSection || domain == ImplicitSection
}
