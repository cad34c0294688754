// Package repository provides persistence implementations for the settings
// map: an INI file compatible with ~/.esgp.cfg and a local SQLite database.
package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"

	"github.com/atinyakov/esgp/internal/models"
)

// ErrImplicitSection is returned when a section would be written under the
// name INI uses for keys outside any section; it would not read back.
var ErrImplicitSection = errors.New("section name is reserved by the INI format")

// INIRepository stores settings sections in an INI file.
type INIRepository struct {
	// Path is the settings file location.
	Path string
}

// NewINIRepository creates an INIRepository for the file at path.
func NewINIRepository(path string) *INIRepository {
	return &INIRepository{Path: path}
}

// ReadSections parses the file and returns its sections in file order.
// A missing file yields no sections and no error.
func (r *INIRepository) ReadSections(_ context.Context) ([]models.Section, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	var sections []models.Section
	for _, sec := range cfg.Sections() {
		// Keys outside any section land in ini's implicit DEFAULT section.
		if sec.Name() == ini.DefaultSection {
			continue
		}
		sections = append(sections, models.Section{
			Name:   sec.Name(),
			Values: sec.KeysHash(),
		})
	}
	return sections, nil
}

// ReplaceSections serializes sections and atomically swaps them in place of
// the previous file: the content goes to a temp file in the same directory,
// is synced, then renamed over Path.
func (r *INIRepository) ReplaceSections(_ context.Context, sections []models.Section) error {
	cfg := ini.Empty()
	for _, s := range sections {
		if s.Name == ini.DefaultSection {
			return fmt.Errorf("%w: %q", ErrImplicitSection, s.Name)
		}
		sec, err := cfg.NewSection(s.Name)
		if err != nil {
			return fmt.Errorf("section %q: %w", s.Name, err)
		}
		for _, k := range sortedKeys(s.Values) {
			if _, err := sec.NewKey(k, s.Values[k]); err != nil {
				return fmt.Errorf("key %q in %q: %w", k, s.Name, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return writeAtomic(r.Path, buf.Bytes(), 0o600)
}

func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	committed = true
	return nil
}
