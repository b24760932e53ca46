// Package codegen produces short codes and validates caller-supplied
// custom codes. Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// DefaultLength is the length of generated short codes.
	DefaultLength = 6

	// MaxCustomLength bounds caller-supplied custom codes.
	MaxCustomLength = 10

	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator generates candidate short codes. Generated codes are not
// unique by themselves; uniqueness is enforced by the store.
type Generator interface {
	Generate(length int) (string, error)
}

// alphanumericGenerator draws uniformly from the 62-character
// alphanumeric alphabet.
type alphanumericGenerator struct{}

// NewAlphanumeric returns a generator over [A-Za-z0-9].
func NewAlphanumeric() Generator {
	return &alphanumericGenerator{}
}

func (g *alphanumericGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	// 256 is not a multiple of 62; bytes at or above the largest
	// multiple are redrawn so every character is equally likely.
	const limit = 256 - 256%len(alphanumeric)

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(c)%len(alphanumeric)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// ValidateCustom checks a caller-supplied custom code: 1 to
// MaxCustomLength characters, each in [A-Za-z0-9_-].
func ValidateCustom(code string) error {
	if code == "" {
		return errors.New("custom code cannot be empty")
	}
	if len(code) > MaxCustomLength {
		return fmt.Errorf("custom code too long (maximum %d characters)", MaxCustomLength)
	}

	for _, c := range code {
		if !isCodeChar(c) {
			return errors.New("custom code can only contain letters, numbers, hyphens, and underscores")
		}
	}
	return nil
}

func isCodeChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
