package passcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	minDigits = 4
	maxDigits = 10

	// DefaultDigits is the code width used when New receives an out-of-range value.
	DefaultDigits = 6
)

// Generator mints fixed-width numeric one-time codes.
type Generator struct {
	digits int
	max    *big.Int
	reader io.Reader
}

// Option customizes a Generator.
type Option func(*Generator)

// WithReader replaces the randomness source, for tests.
func WithReader(r io.Reader) Option {
	return func(g *Generator) {
		g.reader = r
	}
}

// New creates a Generator producing codes of the given width.
// Widths outside [4, 10] fall back to DefaultDigits.
func New(digits int, opts ...Option) *Generator {
	if digits < minDigits || digits > maxDigits {
		digits = DefaultDigits
	}

	g := &Generator{
		digits: digits,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil),
		reader: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Digits returns the configured code width.
func (g *Generator) Digits() int {
	return g.digits
}

// Generate returns a new zero-padded numeric code.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.reader, g.max)
	if err != nil {
		return "", fmt.Errorf("passcode: read randomness: %w", err)
	}

	return fmt.Sprintf("%0*d", g.digits, n), nil
}
