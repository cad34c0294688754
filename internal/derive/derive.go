// Package derive computes site passwords from a memorized secret and a domain.
//
// The derivation is a pure function: the secret and domain are concatenated,
// hashed and re-encoded for a fixed number of rounds, truncated to the
// requested length and repaired so the result starts with a lowercase letter
// and contains a digit. Nothing is retained between calls.
package derive

import (
	"encoding/base64"
	"strings"

	"github.com/atinyakov/esgp/internal/models"
)

// Rounds is the number of hash-then-encode rounds before truncation.
const Rounds = 10

// Secret is the primary passphrase followed by the optional secondary one.
// Formatting a Secret never reveals its value.
type Secret string

// NewSecret joins the primary and secondary passphrases.
func NewSecret(master, extra string) Secret {
	return Secret(master + extra)
}

// String implements fmt.Stringer without exposing the value.
func (Secret) String() string { return "[redacted]" }

// GoString implements fmt.GoStringer without exposing the value.
func (Secret) GoString() string { return "derive.Secret([redacted])" }

// Empty reports whether no passphrase was entered.
func (s Secret) Empty() bool { return len(s) == 0 }

// safe maps standard base64 output onto letters and digits only.
var safe = strings.NewReplacer("+", "9", "/", "8", "=", "A")

// Password derives the password for domain. Identical inputs always yield
// identical output; the result has exactly setting.Length characters.
func Password(secret Secret, domain string, setting models.Setting) string {
	if setting.Length <= 0 {
		return ""
	}

	v := []byte(string(secret) + domain)
	for i := 0; i < Rounds; i++ {
		v = round(setting.Family, v)
	}

	candidate := make([]byte, 0, setting.Length+len(v))
	candidate = append(candidate, v...)
	// Lengths beyond one encoding are served by continuing the chain.
	for len(candidate) < setting.Length {
		v = round(setting.Family, v)
		candidate = append(candidate, v...)
	}

	return string(repair(candidate[:setting.Length]))
}

func round(family models.HashFamily, v []byte) []byte {
	h := family.New()
	h.Write(v)
	return []byte(safe.Replace(base64.StdEncoding.EncodeToString(h.Sum(nil))))
}

// repair forces a lowercase first character and, for two or more
// characters, the presence of a digit. It only looks at c itself.
func repair(c []byte) []byte {
	if len(c) == 0 {
		return c
	}

	var sum int
	for _, b := range c {
		sum += int(b)
	}

	switch first := c[0]; {
	case first >= 'A' && first <= 'Z':
		c[0] = first - 'A' + 'a'
	case first >= '0' && first <= '9':
		c[0] = first - '0' + 'a'
	}

	if len(c) >= 2 && !hasDigit(c) {
		c[1] = byte('0' + sum%10)
	}
	return c
}

func hasDigit(c []byte) bool {
	for _, b := range c {
		if b >= '0' && b <= '9' {
			return true
		}
	}
	return false
}
