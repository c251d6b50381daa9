package model

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidKeycode is returned by ParseKeycode for tokens that are neither
// 10 decimal digits nor 7 hexadecimal characters.
var ErrInvalidKeycode = errors.New("invalid keycode")

// Member is one scan token of a club member. A member owning several
// physical tokens is stored as several Members sharing the same ID.
type Member struct {
	// Keycode is the normalized 10-digit scan token.
	Keycode   string `json:"keycode"`
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	// Nickname overrides the full name on screen when set.
	Nickname string `json:"nickname,omitempty"`
}

// DisplayName returns the nickname if set, otherwise "First Last".
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// ParseKeycode normalizes a raw scan token to its canonical 10-digit form.
//
// A 10-digit decimal token is returned unchanged. A 7-character hexadecimal
// token (either case) is read as a hexadecimal number and written in decimal,
// zero-padded to 10 digits. Anything else is rejected with ErrInvalidKeycode.
func ParseKeycode(raw string) (string, error) {
	switch {
	case len(raw) == 10 && isDigits(raw):
		return raw, nil
	case len(raw) == 7 && isHex(raw):
		value, err := strconv.ParseUint(raw, 16, 32)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidKeycode, raw, err)
		}
		return fmt.Sprintf("%010d", value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKeycode, raw)
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
