// Package token generates the opaque identifiers used for page views and
// navigation state handoffs.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a string is not a well-formed token.
var ErrInvalidToken = errors.New("invalid token")

// Crockford's Base32 alphabet, without easily confused characters.
const crockfordBase32Alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the length of tokens returned by New.
const Length = 26

// New returns a fresh token: a UUIDv7 rendered in lowercase Crockford base32.
// Tokens sort by creation time.
func New() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return Encode(id[:]), nil
}

// Encode encodes input using Crockford's Base32 alphabet in lowercase without
// padding.
//
//nolint:gosec
func Encode(input []byte) string {
	var (
		result strings.Builder
		bits   = 0
		accum  = 0
	)

	result.Grow((len(input)*8 + 4) / 5)

	for _, b := range input {
		accum = accum<<8 | int(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			result.WriteByte(crockfordBase32Alphabet[(accum>>bits)&0x1F])
		}
	}

	if bits > 0 {
		result.WriteByte(crockfordBase32Alphabet[(accum<<uint(5-bits))&0x1F])
	}

	return result.String()
}

// Normalize folds human transcription variants of a Crockford string:
// whitespace is removed, letters are lowercased, 'o' becomes '0' and 'i'/'l'
// become '1'.
func Normalize(input string) string {
	var result strings.Builder

	for _, char := range strings.ToLower(input) {
		switch char {
		case ' ', '\t', '\n', '\r':
		case 'o':
			result.WriteRune('0')
		case 'i', 'l':
			result.WriteRune('1')
		default:
			result.WriteRune(char)
		}
	}

	return result.String()
}

// Parse normalizes s and checks that it has the shape of a token returned by
// New.
func Parse(s string) (string, error) {
	tok := Normalize(s)

	if len(tok) != Length {
		return "", fmt.Errorf("%w: length %d", ErrInvalidToken, len(tok))
	}

	for _, char := range tok {
		if !strings.ContainsRune(crockfordBase32Alphabet, char) {
			return "", fmt.Errorf("%w: character %q", ErrInvalidToken, char)
		}
	}

	return tok, nil
}
