package security

import (
	"errors"
	"strings"
	"unicode"
)

// TemporaryPasswordAlphabet leaves out characters that are easy to misread
// when a password is copied from a terminal.
const TemporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

const (
	minTemporaryPasswordLength = 8
	maxTemporaryPasswordDraws  = 64
)

var errTemporaryPasswordExhausted = errors.New("could not draw a mixed temporary password")

// TemporaryPassword draws a password of at least eight characters that mixes
// upper case, lower case and digits.
func TemporaryPassword(length int) (string, error) {
	if length < minTemporaryPasswordLength {
		length = minTemporaryPasswordLength
	}
	for draw := 0; draw < maxTemporaryPasswordDraws; draw++ {
		candidate, err := RandomString(length, TemporaryPasswordAlphabet)
		if err != nil {
			return "", err
		}
		if mixesClasses(candidate) {
			return candidate, nil
		}
	}
	return "", errTemporaryPasswordExhausted
}

func mixesClasses(value string) bool {
	return strings.IndexFunc(value, unicode.IsUpper) >= 0 &&
		strings.IndexFunc(value, unicode.IsLower) >= 0 &&
		strings.IndexFunc(value, unicode.IsDigit) >= 0
}
