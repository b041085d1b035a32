// Package clipboard offers the auth token the user just copied from the bot
// as the default answer in the setup dialog.
package clipboard

import (
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
)

const (
	minTokenLen = 8
	maxTokenLen = 512
)

// reader is swapped in tests.
var reader = clipboard.ReadAll

// TokenCandidate returns the clipboard text if it looks like a token, or "".
// Clipboard errors (no clipboard utility, empty clipboard) read as "".
func TokenCandidate() string {
	text, err := reader()
	if err != nil {
		return ""
	}
	text = strings.TrimSpace(text)
	if !LooksLikeToken(text) {
		return ""
	}
	return text
}

// LooksLikeToken accepts a single printable word of plausible length.
// Copied sentences, URLs and multi-line text are rejected.
func LooksLikeToken(s string) bool {
	if len(s) < minTokenLen || len(s) > maxTokenLen {
		return false
	}
	if strings.Contains(s, "://") {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
