// Package shell implements the interactive command loop: it collects the
// secret and domain, shows the fingerprint, generates passwords and edits
// the settings cascade.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/atinyakov/esgp/internal/derive"
	"github.com/atinyakov/esgp/internal/fingerprint"
	"github.com/atinyakov/esgp/internal/models"
	"github.com/atinyakov/esgp/internal/settings"
)

var (
	// ErrNoSecret is returned when generating before a secret was entered.
	ErrNoSecret = errors.New("no secret entered")
	// ErrNoDomain is returned when generating without a domain.
	ErrNoDomain = errors.New("no domain entered")
)

const helpText = `Available commands:
  secret                          enter master and secondary passwords
  domain <domain>                 set the domain
  generate [domain]               derive the password for the domain
  fingerprint [file.png]          show the fingerprint of the secret
  settings                        list default and per-domain settings
  default <MD5|SHA> <length>      change the default setting
  add <domain> [MD5|SHA] [length] add a per-domain setting
  edit <n> <domain> <MD5|SHA> <length>
                                  replace per-domain setting n
  remove <n>                      delete per-domain setting n
  save                            write settings to disk
  help, exit`

// SecretReader reads a passphrase without echoing it.
type SecretReader interface {
	ReadSecret(prompt string) (string, error)
}

// Shell is one interactive session. The secret lives only in memory for
// the duration of the session.
type Shell struct {
	in      *bufio.Scanner
	out     io.Writer
	secrets SecretReader
	store   *settings.Store
	repo    settings.Repository
	log     *zap.Logger

	secret derive.Secret
	domain string
	dirty  bool
}

// New creates a shell reading commands from in and writing to out. When
// secrets is nil, passphrases are read as plain lines from in.
func New(in io.Reader, out io.Writer, secrets SecretReader, store *settings.Store, repo settings.Repository, log *zap.Logger) *Shell {
	return &Shell{
		in:      bufio.NewScanner(in),
		out:     out,
		secrets: secrets,
		store:   store,
		repo:    repo,
		log:     log,
	}
}

// SetDomain sets the current domain.
func (s *Shell) SetDomain(domain string) {
	s.domain = strings.TrimSpace(domain)
}

// Domain returns the current domain.
func (s *Shell) Domain() string {
	return s.domain
}

// Run reads commands until exit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	if s.domain != "" {
		fmt.Fprintf(s.out, "Domain: %s\n", s.domain)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, "esgp> ")
		if !s.in.Scan() {
			break
		}
		if quit := s.Exec(ctx, s.in.Text()); quit {
			return nil
		}
	}
	if err := s.in.Err(); err != nil {
		return fmt.Errorf("read command: %w", err)
	}
	s.warnUnsaved()
	return nil
}

// Exec runs a single command line and reports whether the session should end.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "secret":
		err = s.cmdSecret()
	case "domain":
		err = s.cmdDomain(args[1:])
	case "generate":
		err = s.cmdGenerate(args[1:])
	case "fingerprint":
		err = s.cmdFingerprint(args[1:])
	case "settings":
		s.printSettings()
	case "default":
		err = s.cmdDefault(args[1:])
	case "add":
		err = s.cmdAdd(args[1:])
	case "edit":
		err = s.cmdEdit(args[1:])
	case "remove":
		err = s.cmdRemove(args[1:])
	case "save":
		err = s.Save(ctx)
		if err == nil {
			fmt.Fprintln(s.out, "Settings saved")
		}
	case "exit", "quit":
		s.warnUnsaved()
		fmt.Fprintln(s.out, "Bye")
		return true
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}

	if err != nil {
		fmt.Fprintln(s.out, "Error:", err)
		s.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
	}
	return false
}

// PromptSecret asks for the master and the optional secondary passphrase.
func (s *Shell) PromptSecret() error {
	master, err := s.readSecret("Master password: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	extra, err := s.readSecret("Secret password (optional): ")
	if err != nil {
		return fmt.Errorf("read secret password: %w", err)
	}
	s.secret = derive.NewSecret(master, extra)
	return nil
}

// Generate derives the password for domain, or the current domain when
// domain is empty, using the setting the cascade resolves for it.
func (s *Shell) Generate(domain string) (string, error) {
	if domain == "" {
		domain = s.domain
	}
	if s.secret.Empty() {
		return "", ErrNoSecret
	}
	if domain == "" {
		return "", ErrNoDomain
	}
	setting := s.store.Resolve(domain)
	s.log.Debug("generating password",
		zap.String("domain", domain),
		zap.Stringer("family", setting.Family),
		zap.Int("length", setting.Length),
	)
	return derive.Password(s.secret, domain, setting), nil
}

// Fingerprint returns the fingerprint of the current secret using the
// default hash family. It reports false when no secret was entered.
func (s *Shell) Fingerprint() (fingerprint.Bitmap, bool) {
	return fingerprint.Generate(s.secret, s.store.Default.Family)
}

// Save persists the settings cascade.
func (s *Shell) Save(ctx context.Context) error {
	if err := settings.Save(ctx, s.repo, s.store, s.log); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Shell) cmdSecret() error {
	if err := s.PromptSecret(); err != nil {
		return err
	}
	s.showFingerprint()
	return nil
}

func (s *Shell) cmdDomain(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: domain <domain>")
	}
	s.SetDomain(args[0])
	setting := s.store.Resolve(s.domain)
	fmt.Fprintf(s.out, "Domain: %s (%s, %d)\n", s.domain, setting.Family, setting.Length)
	return nil
}

func (s *Shell) cmdGenerate(args []string) error {
	if len(args) > 1 {
		return errors.New("usage: generate [domain]")
	}
	if len(args) == 1 {
		s.SetDomain(args[0])
	}
	pw, err := s.Generate("")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, pw)
	return nil
}

func (s *Shell) cmdFingerprint(args []string) error {
	b, ok := s.Fingerprint()
	if !ok {
		return ErrNoSecret
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, b.Terminal())
		return nil
	}
	return WritePNGFile(args[0], b)
}

func (s *Shell) cmdDefault(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: default <MD5|SHA> <length>")
	}
	setting, err := parseSetting(args[0], args[1])
	if err != nil {
		return err
	}
	if err := s.store.SetDefault(setting); err != nil {
		return err
	}
	s.dirty = true
	s.showFingerprint()
	return nil
}

func (s *Shell) cmdAdd(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errors.New("usage: add <domain> [MD5|SHA] [length]")
	}
	o := s.store.NewOverride(args[0])
	if len(args) == 3 {
		setting, err := parseSetting(args[1], args[2])
		if err != nil {
			return err
		}
		o.Setting = setting
	}
	if err := s.store.Append(o); err != nil {
		return err
	}
	s.dirty = true
	s.printSettings()
	return nil
}

func (s *Shell) cmdEdit(args []string) error {
	if len(args) != 4 {
		return errors.New("usage: edit <n> <domain> <MD5|SHA> <length>")
	}
	i, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	setting, err := parseSetting(args[2], args[3])
	if err != nil {
		return err
	}
	if err := s.store.Replace(i, models.DomainOverride{Domain: args[1], Setting: setting}); err != nil {
		return err
	}
	s.dirty = true
	s.printSettings()
	return nil
}

func (s *Shell) cmdRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove <n>")
	}
	i, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := s.store.Remove(i); err != nil {
		return err
	}
	s.dirty = true
	s.printSettings()
	return nil
}

func (s *Shell) printSettings() {
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tDomain\tLength\tAlgorithm\n")
	fmt.Fprintf(tw, "-\t(default)\t%d\t%s\n", s.store.Default.Length, s.store.Default.Family)
	for i, o := range s.store.Overrides {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, o.Domain, o.Setting.Length, o.Setting.Family)
	}
	_ = tw.Flush()
}

func (s *Shell) showFingerprint() {
	if b, ok := s.Fingerprint(); ok {
		fmt.Fprintln(s.out, b.Terminal())
	}
}

func (s *Shell) warnUnsaved() {
	if s.dirty {
		fmt.Fprintln(s.out, "Unsaved settings changes were discarded")
	}
}

func (s *Shell) readSecret(prompt string) (string, error) {
	if s.secrets != nil {
		return s.secrets.ReadSecret(prompt)
	}
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return s.in.Text(), nil
}

// WritePNGFile writes b as a PNG image to path.
func WritePNGFile(path string, b fingerprint.Bitmap) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := b.WritePNG(f, fingerprint.DefaultCellPixels); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// parseIndex converts a 1-based row number as shown by "settings".
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid row number %q", s)
	}
	return n - 1, nil
}

func parseSetting(family, length string) (models.Setting, error) {
	f, err := models.ParseHashFamily(family)
	if err != nil {
		return models.Setting{}, err
	}
	n, err := strconv.Atoi(length)
	if err != nil {
		return models.Setting{}, fmt.Errorf("invalid length %q", length)
	}
	s := models.Setting{Family: f, Length: n}
	return s, s.Validate()
}
