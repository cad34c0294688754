// Package nativemsg reads the single message a browser extension sends when
// it launches the program through native messaging, and extracts the domain
// of the page the user was on.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Prefix marks the origin argument a browser passes to a native host.
const Prefix = "chrome-extension://"

// MaxSize bounds the payload length accepted from the length prefix.
const MaxSize = 64 << 20

var (
	// ErrTruncated is returned when the prefix or payload ends early.
	ErrTruncated = errors.New("native message truncated")
	// ErrTooLarge is returned when the prefix announces more than MaxSize bytes.
	ErrTooLarge = errors.New("native message too large")
	// ErrMissingURL is returned when the payload has no url field.
	ErrMissingURL = errors.New("native message has no url")
)

// Message is the payload sent by the extension.
type Message struct {
	URL string `json:"url"`
}

// IsLaunchArg reports whether arg is the origin a browser passes when it
// starts a native messaging host.
func IsLaunchArg(arg string) bool {
	return strings.HasPrefix(arg, Prefix)
}

// Read consumes one message: a 4-byte length in native byte order followed
// by that many bytes of JSON.
func Read(r io.Reader) (Message, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Message{}, fmt.Errorf("%w: length prefix: %v", ErrTruncated, err)
	}

	n := binary.NativeEndian.Uint32(prefix[:])
	if n > MaxSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("%w: payload: %v", ErrTruncated, err)
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decode native message: %w", err)
	}
	if msg.URL == "" {
		return Message{}, ErrMissingURL
	}
	return msg, nil
}

// Domain returns the authority (host and optional port) of rawURL.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return u.Host, nil
}

// ReadDomain reads one message from r and returns the domain of its URL.
func ReadDomain(r io.Reader) (string, error) {
	msg, err := Read(r)
	if err != nil {
		return "", err
	}
	return Domain(msg.URL)
}
