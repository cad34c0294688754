package shell

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalSecrets reads passphrases from a terminal with echo disabled.
type TerminalSecrets struct {
	In  *os.File
	Out io.Writer
}

// ReadSecret prints prompt and reads one line without echoing it.
func (t TerminalSecrets) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(t.Out, prompt)
	b, err := term.ReadPassword(int(t.In.Fd()))
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
