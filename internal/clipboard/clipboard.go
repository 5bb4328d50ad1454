// Package clipboard copies assistant replies to the system clipboard.
package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmpty is returned when there is nothing worth copying.
var ErrEmpty = errors.New("nothing to copy")

// ErrUnavailable is returned when no clipboard utility is installed
// (xclip, xsel or wl-copy on Linux).
var ErrUnavailable = errors.New("system clipboard is unavailable")

// Paste reads text from the system clipboard
func Paste() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	return clipboard.ReadAll()
}

// Copy writes text to the system clipboard. Surrounding whitespace is
// trimmed and blank text is refused.
func Copy(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmpty
	}
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}
