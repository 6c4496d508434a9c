package relay

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeAlphabet omits 0, 1, I and O so codes survive being read aloud.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a room code.
const CodeLength = 4

// NewCode returns a random room code.
func NewCode() (string, error) {
	var buf [CodeLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("room code: %w", err)
	}
	// 256 is a multiple of len(CodeAlphabet), so the modulo is unbiased.
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf[:]), nil
}

// NormalizeCode upper-cases and trims user input.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidCode reports whether s is a well-formed room code.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
