// Package shortcode generates random fixed-length short codes.
package shortcode

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of symbols a short code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the length of codes when none is configured.
const DefaultLength = 6

var ErrInvalidLength = errors.New("short code length must be positive")

// Generator draws codes uniformly at random from Alphabet.
// It keeps no state, so uniqueness has to be enforced by the caller.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(length int) (string, error) {
	const op = "shortcode.Generator.Generate"

	if length <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// Valid reports whether s could have been produced by a Generator.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
