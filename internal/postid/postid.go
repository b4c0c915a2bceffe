// Package postid generates post identifiers from creation sequence positions.
//
// The encoding is deterministic for a given salt, injective over positive
// positions, and padded to a fixed minimum length, so ids are uniform-looking
// and safe to use as URL path segments. Uniqueness is inherited from the
// sequence position; the codec never needs to be decoded, only compared.
package postid

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

const (
	// DefaultSalt is used when the blog config has no id_salt entry.
	DefaultSalt = "HashSecretSalt"

	// DefaultMinLength is the minimum id length.
	DefaultMinLength = 8

	// Alphabet contains only characters that are safe in URL path segments.
	Alphabet = "abcdefghijklmnopqrstuvwxyz1234567890"
)

type Encoder struct {
	h         *hashids.HashID
	minLength int
}

func NewEncoder(salt string, minLength int) (*Encoder, error) {
	if salt == "" {
		salt = DefaultSalt
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = minLength
	data.Alphabet = Alphabet

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("building id encoder: %w", err)
	}
	return &Encoder{h: h, minLength: minLength}, nil
}

// Encode maps a sequence position to a post id. Positions start at 1; the
// first post of a blog encodes position 1.
func (e *Encoder) Encode(seq int64) (string, error) {
	if seq < 0 {
		return "", fmt.Errorf("sequence position must be non-negative, got %d", seq)
	}
	id, err := e.h.EncodeInt64([]int64{seq})
	if err != nil {
		return "", fmt.Errorf("encoding sequence position %d: %w", seq, err)
	}
	return id, nil
}

// MinLength reports the configured minimum id length.
func (e *Encoder) MinLength() int {
	return e.minLength
}
