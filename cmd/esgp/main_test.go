package main

import (
	"context"
	"encoding/binary"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/esgp/internal/client/shell"
	"github.com/atinyakov/esgp/internal/config"
)

func pipeInput(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	t.Cleanup(func() { r.Close() })
	return r
}

func runCommand(t *testing.T, options *config.Options, input string) string {
	t.Helper()
	out, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, run(context.Background(), options, pipeInput(t, input), out, zap.NewNop()))

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	return string(data)
}

func TestRun_GenerateINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".esgp.cfg")
	content := "[defaults]\nalgorithm = MD5\nlength = 10\n\n[example.com]\nalgorithm = SHA\nlength = 16\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out := runCommand(t, &config.Options{
		Command:      config.CmdGenerate,
		Backend:      config.BackendINI,
		SettingsPath: path,
		Domain:       "example.com",
	}, "master\n\n")

	assert.True(t, strings.HasSuffix(out, "aiir4j91bPVJ1u1m\n"), out)
}

func TestRun_ShellWithSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esgp.db")
	options := &config.Options{
		Command:      config.CmdShell,
		Backend:      config.BackendSQLite,
		SettingsPath: path,
	}

	runCommand(t, options, "add example.com SHA 16\nsave\nexit\n")

	options.Command = config.CmdGenerate
	options.Domain = "example.com"
	out := runCommand(t, options, "master\n\n")
	assert.True(t, strings.HasSuffix(out, "aiir4j91bPVJ1u1m\n"), out)
}

func TestRun_FingerprintPNG(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "fp.png")

	runCommand(t, &config.Options{
		Command:      config.CmdFingerprint,
		Backend:      config.BackendINI,
		SettingsPath: filepath.Join(dir, "missing.cfg"),
		PNGPath:      pngPath,
	}, "master\n\n")

	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 15, img.Bounds().Dx())
}

func TestRun_GenerateWithoutDomain(t *testing.T) {
	out, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer out.Close()

	err = run(context.Background(), &config.Options{
		Command:      config.CmdGenerate,
		Backend:      config.BackendINI,
		SettingsPath: filepath.Join(t.TempDir(), "esgp.cfg"),
	}, pipeInput(t, "master\n\n"), out, zap.NewNop())
	assert.Error(t, err)
}

func frame(payload string) string {
	var prefix [4]byte
	binary.NativeEndian.PutUint32(prefix[:], uint32(len(payload)))
	return string(prefix[:]) + payload
}

func withoutTerminal(t *testing.T) {
	t.Helper()
	orig := openTerminal
	openTerminal = func() (*os.File, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { openTerminal = orig })
}

func browserOptions(t *testing.T, domain string) *config.Options {
	return &config.Options{
		Command:      config.CmdGenerate,
		Backend:      config.BackendINI,
		SettingsPath: filepath.Join(t.TempDir(), "esgp.cfg"),
		Domain:       domain,
		Arg:          "chrome-extension://abcdef/",
	}
}

func TestRun_BrowserLaunchUsesMessageDomain(t *testing.T) {
	withoutTerminal(t)

	input := frame(`{"url":"https://example.com/login?next=/"}`) + "master\n\n"
	out := runCommand(t, browserOptions(t, ""), input)
	assert.True(t, strings.HasSuffix(out, "wU6EVlV7AG\n"), out)
}

func TestRun_BrowserLaunchExplicitDomainWins(t *testing.T) {
	withoutTerminal(t)

	input := frame(`{"url":"https://other.org/"}`) + "master\n\n"
	out := runCommand(t, browserOptions(t, "example.com"), input)
	assert.True(t, strings.HasSuffix(out, "wU6EVlV7AG\n"), out)
}

func TestRun_BrowserLaunchBadFrameIsNotFatal(t *testing.T) {
	withoutTerminal(t)

	input := frame("not json") + "master\n\n"
	out := runCommand(t, browserOptions(t, "example.com"), input)
	assert.True(t, strings.HasSuffix(out, "wU6EVlV7AG\n"), out)

	stdout, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer stdout.Close()
	err = run(context.Background(), browserOptions(t, ""), pipeInput(t, frame("not json")+"master\n\n"), stdout, zap.NewNop())
	assert.ErrorIs(t, err, shell.ErrNoDomain)
}
