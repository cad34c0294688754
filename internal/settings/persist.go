package settings

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/esgp/internal/models"
)

// Persisted key names inside a section.
const (
	KeyAlgorithm  = "algorithm"
	KeyHashFamily = "hash_family"
	KeyLength     = "length"
)

// Repository defines the persistence operations needed by Load and Save.
type Repository interface {
	// ReadSections returns every persisted section in stored order.
	// A missing store is not an error and yields no sections.
	ReadSections(ctx context.Context) ([]models.Section, error)
	// ReplaceSections atomically replaces the persisted map with sections.
	ReplaceSections(ctx context.Context, sections []models.Section) error
}

// Load builds a store from the repository. It never fails: unreadable or
// corrupt state is logged and the built-in defaults are returned, and any
// unparsable value is treated as unset.
func Load(ctx context.Context, repo Repository, log *zap.Logger) *Store {
	store := New()

	sections, err := repo.ReadSections(ctx)
	if err != nil {
		log.Warn("failed to read settings, using defaults", zap.Error(err))
		return store
	}

	for _, sec := range sections {
		if sec.Name == DefaultsSection {
			store.Default = parseSetting(sec, BuiltinDefault, log)
			break
		}
	}

	for _, sec := range sections {
		if sec.Name == DefaultsSection {
			continue
		}
		store.Overrides = append(store.Overrides, models.DomainOverride{
			Domain:  sec.Name,
			Setting: parseSetting(sec, store.Default, log),
		})
	}

	log.Debug("settings loaded",
		zap.Stringer("default_family", store.Default.Family),
		zap.Int("default_length", store.Default.Length),
		zap.Int("overrides", len(store.Overrides)),
	)
	return store
}

// Save writes the defaults section and one section per override that has a
// domain. Blank rows are skipped. For a repeated domain only the first row is
// written, since that is the one Resolve returns.
func Save(ctx context.Context, repo Repository, store *Store, log *zap.Logger) error {
	sections := make([]models.Section, 0, len(store.Overrides)+1)
	sections = append(sections, formatSection(DefaultsSection, store.Default))

	seen := make(map[string]bool, len(store.Overrides))
	for _, o := range store.Overrides {
		switch {
		case o.Domain == "":
			continue
		case IsReserved(o.Domain):
			log.Warn("skipping override with reserved name", zap.String("domain", o.Domain))
			continue
		case seen[o.Domain]:
			log.Debug("skipping shadowed duplicate override", zap.String("domain", o.Domain))
			continue
		}
		seen[o.Domain] = true
		sections = append(sections, formatSection(o.Domain, o.Setting))
	}

	return repo.ReplaceSections(ctx, sections)
}

func parseSetting(sec models.Section, fallback models.Setting, log *zap.Logger) models.Setting {
	s := fallback

	raw, ok := sec.Values[KeyAlgorithm]
	if !ok {
		raw, ok = sec.Values[KeyHashFamily]
	}
	if ok {
		if family, err := models.ParseHashFamily(raw); err == nil {
			s.Family = family
		} else {
			log.Warn("ignoring hash family", zap.String("section", sec.Name), zap.Error(err))
		}
	}

	if raw, ok := sec.Values[KeyLength]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		candidate := models.Setting{Family: s.Family, Length: n}
		if err == nil {
			err = candidate.Validate()
		}
		if err == nil {
			s.Length = n
		} else {
			log.Warn("ignoring length", zap.String("section", sec.Name), zap.Error(err))
		}
	}
	return s
}

func formatSection(name string, s models.Setting) models.Section {
	return models.Section{
		Name: name,
		Values: map[string]string{
			KeyAlgorithm: s.Family.String(),
			KeyLength:    strconv.Itoa(s.Length),
		},
	}
}
