// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional YAML options file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Supported settings backends.
const (
	BackendINI    = "ini"
	BackendSQLite = "sqlite"
)

// Supported commands.
const (
	CmdShell       = "shell"
	CmdGenerate    = "generate"
	CmdFingerprint = "fingerprint"
)

// Options holds the configuration values for the application.
type Options struct {
	// Domain is the initial domain value.
	Domain string `yaml:"domain"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`

	// Command selects the interactive shell or a one-shot command.
	Command string `yaml:"command"`

	// SettingsPath is the location of the persisted settings map.
	SettingsPath string `yaml:"settings"`

	// Backend selects how settings are persisted: "ini" or "sqlite".
	Backend string `yaml:"backend"`

	// PNGPath, when set, receives the fingerprint as a PNG image.
	PNGPath string `yaml:"png"`

	// Config is the path to the YAML options file.
	Config string `yaml:"-"`

	// ShowVersion prints build metadata and exits.
	ShowVersion bool `yaml:"-"`

	// Arg is the optional positional argument. A browser passes its
	// extension origin here when it launches the program.
	Arg string `yaml:"-"`
}

// Parse parses args (without the program name) together with the
// environment and the options file. Precedence, lowest first: built-in
// defaults, options file, environment, explicitly set flags.
func Parse(args []string) (*Options, error) {
	opts := &Options{Command: CmdShell, Backend: BackendINI}

	set := flag.NewFlagSet("esgp", flag.ContinueOnError)
	flags := &Options{}
	set.StringVar(&flags.Domain, "d", "", "initial domain")
	set.StringVar(&flags.Domain, "domain", "", "initial domain")
	set.BoolVar(&flags.Verbose, "v", false, "enable verbose logging")
	set.BoolVar(&flags.Verbose, "verbose", false, "enable verbose logging")
	set.StringVar(&flags.Command, "cmd", CmdShell, "command: shell | generate | fingerprint")
	set.StringVar(&flags.SettingsPath, "settings", "", "path to settings store (default ~/.esgp.cfg or ~/.esgp.db)")
	set.StringVar(&flags.Backend, "backend", BackendINI, "settings backend: ini | sqlite")
	set.StringVar(&flags.PNGPath, "png", "", "write the fingerprint as PNG to this file")
	set.StringVar(&flags.Config, "config", "", "path to YAML options file")
	set.StringVar(&flags.Config, "c", "", "path to YAML options file (shorthand)")
	set.BoolVar(&flags.ShowVersion, "version", false, "show build version and date")
	if err := set.Parse(args); err != nil {
		return nil, err
	}
	if set.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %v", set.Args()[1:])
	}
	opts.Arg = set.Arg(0)
	opts.ShowVersion = flags.ShowVersion

	opts.Config = flags.Config
	if configPath := os.Getenv("ESGP_CONFIG"); configPath != "" && flags.Config == "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		if err := loadFile(opts.Config, opts); err != nil {
			return nil, err
		}
	}

	if path := os.Getenv("ESGP_SETTINGS"); path != "" {
		opts.SettingsPath = path
	}
	if backend := os.Getenv("ESGP_BACKEND"); backend != "" {
		opts.Backend = backend
	}

	set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d", "domain":
			opts.Domain = flags.Domain
		case "v", "verbose":
			opts.Verbose = flags.Verbose
		case "cmd":
			opts.Command = flags.Command
		case "settings":
			opts.SettingsPath = flags.SettingsPath
		case "backend":
			opts.Backend = flags.Backend
		case "png":
			opts.PNGPath = flags.PNGPath
		}
	})

	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.SettingsPath == "" {
		path, err := DefaultSettingsPath(opts.Backend)
		if err != nil {
			return nil, err
		}
		opts.SettingsPath = path
	}
	return opts, nil
}

// DefaultSettingsPath returns the per-user settings location for backend.
func DefaultSettingsPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	name := ".esgp.cfg"
	if backend == BackendSQLite {
		name = ".esgp.db"
	}
	return filepath.Join(home, name), nil
}

func (o *Options) validate() error {
	switch o.Backend {
	case BackendINI, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", o.Backend)
	}
	switch o.Command {
	case CmdShell, CmdGenerate, CmdFingerprint:
	default:
		return fmt.Errorf("unknown command %q", o.Command)
	}
	return nil
}

// loadFile overlays the YAML file at path onto opts. A missing file is
// ignored so a default path can be configured before the file exists.
func loadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
