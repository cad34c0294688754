// Package main is the esgp command: it loads the settings cascade, picks up
// an initial domain from the flags or from a browser extension, and runs
// the interactive shell or a one-shot command.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/atinyakov/esgp/internal/client/shell"
	"github.com/atinyakov/esgp/internal/config"
	"github.com/atinyakov/esgp/internal/db"
	"github.com/atinyakov/esgp/internal/logger"
	"github.com/atinyakov/esgp/internal/nativemsg"
	"github.com/atinyakov/esgp/internal/repository"
	"github.com/atinyakov/esgp/internal/settings"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// openTerminal returns the controlling terminal of the process.
var openTerminal = func() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}

func main() {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if options.ShowVersion {
		fmt.Printf("esgp\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(logger.Level(options.Verbose)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, options, os.Stdin, os.Stdout, zapLogger); err != nil {
		zapLogger.Error("esgp failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

// run wires the settings store, the initial domain and the shell, then
// executes the selected command.
func run(ctx context.Context, options *config.Options, stdin, stdout *os.File, log *zap.Logger) error {
	repo, closeRepo, err := openRepository(options)
	if err != nil {
		return err
	}
	defer closeRepo()

	store := settings.Load(ctx, repo, log)

	in, out := stdin, stdout
	domain := options.Domain
	if nativemsg.IsLaunchArg(options.Arg) {
		// Launched by the browser: stdin carries the extension's message,
		// so the session itself has to use the controlling terminal.
		if d, err := nativemsg.ReadDomain(stdin); err != nil {
			log.Warn("failed to read native message", zap.Error(err))
		} else if domain == "" {
			domain = d
		}

		if tty, err := openTerminal(); err != nil {
			log.Warn("no controlling terminal, staying on standard streams", zap.Error(err))
		} else {
			defer tty.Close()
			in, out = tty, tty
		}
	}

	var secrets shell.SecretReader
	if shell.IsTerminal(in) {
		secrets = shell.TerminalSecrets{In: in, Out: out}
	}

	sh := shell.New(in, out, secrets, store, repo, log)
	sh.SetDomain(domain)
	log.Debug("session started",
		zap.String("command", options.Command),
		zap.String("backend", options.Backend),
		zap.String("settings", options.SettingsPath),
		zap.String("domain", sh.Domain()),
	)

	switch options.Command {
	case config.CmdGenerate:
		if err := sh.PromptSecret(); err != nil {
			return err
		}
		pw, err := sh.Generate("")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, pw)
		return nil
	case config.CmdFingerprint:
		if err := sh.PromptSecret(); err != nil {
			return err
		}
		b, ok := sh.Fingerprint()
		if !ok {
			return shell.ErrNoSecret
		}
		if options.PNGPath != "" {
			return shell.WritePNGFile(options.PNGPath, b)
		}
		fmt.Fprintln(out, b.Terminal())
		return nil
	default:
		return sh.Run(ctx)
	}
}

func openRepository(options *config.Options) (settings.Repository, func(), error) {
	if options.Backend == config.BackendSQLite {
		conn, err := db.InitSQLite(options.SettingsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot init database: %w", err)
		}
		return repository.NewSQLiteRepository(conn), func() { _ = conn.Close() }, nil
	}
	return repository.NewINIRepository(options.SettingsPath), func() {}, nil
}
