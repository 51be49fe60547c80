// Package shortcode generates the compact aliases used in shareable recipe links.
package shortcode

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is ASCII letters and digits.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length of every generated code.
	Length = 8
	// MaxAttempts bounds how many candidates are tried before giving up.
	MaxAttempts = 10
)

// ErrExhausted is returned when every attempt produced a code already in use.
var ErrExhausted = errors.New("shortcode: no free code found")

// ExistsFunc reports whether code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces random codes. Source is replaceable for tests.
type Generator struct {
	Source      func() (string, error)
	MaxAttempts int
}

// NewGenerator returns a Generator drawing Length characters from Alphabet.
func NewGenerator() *Generator {
	return &Generator{
		Source:      func() (string, error) { return gonanoid.Generate(Alphabet, Length) },
		MaxAttempts: MaxAttempts,
	}
}

// Generate returns one random candidate without checking for collisions.
func (g *Generator) Generate() (string, error) {
	code, err := g.Source()
	if err != nil {
		return "", fmt.Errorf("generate short code: %w", err)
	}
	return code, nil
}

// Assign returns the first candidate for which exists reports false, trying
// at most MaxAttempts candidates.
func (g *Generator) Assign(ctx context.Context, exists ExistsFunc) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// Valid reports whether s has the shape of a generated code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
