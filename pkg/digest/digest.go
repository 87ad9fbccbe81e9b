// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keytypes.
//
// go-keytypes is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package digest provides a tagged union over hash algorithm outputs.
package digest

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
)

// ErrInvalidDigestLength is returned when raw digest bytes do not match the
// output size of the declared hash algorithm.
var ErrInvalidDigestLength = errors.New("digest: invalid digest length")

// DigestType identifies the hash algorithm that produced a Digest.
type DigestType uint8

const (
	SHA256 DigestType = 2
	SHA384 DigestType = 3
	SHA512 DigestType = 5
)

// Types lists every DigestType in tag order.
var Types = []DigestType{SHA256, SHA384, SHA512}

// Valid reports whether t is an assigned digest tag.
func (t DigestType) Valid() bool {
	switch t {
	case SHA256, SHA384, SHA512:
		return true
	}
	return false
}

func (t DigestType) String() string {
	switch t {
	case SHA256:
		return "SHA256"
	case SHA384:
		return "SHA384"
	case SHA512:
		return "SHA512"
	}
	return fmt.Sprintf("DigestType(%d)", uint8(t))
}

// Size returns the output length in bytes, or 0 for an unknown type.
func (t DigestType) Size() int {
	switch t {
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	}
	return 0
}

// Hash returns the crypto.Hash identifier for t.
func (t DigestType) Hash() crypto.Hash {
	switch t {
	case SHA256:
		return crypto.SHA256
	case SHA384:
		return crypto.SHA384
	case SHA512:
		return crypto.SHA512
	}
	return 0
}

// New returns a fresh hash.Hash for t, or nil for an unknown type.
func (t DigestType) New() hash.Hash {
	switch t {
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	}
	return nil
}

// ParseType parses the name returned by DigestType.String.
func ParseType(name string) (DigestType, error) {
	for _, t := range Types {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown digest type %q", typed.ErrBadTypeData, name)
}

// Digest is an immutable hash output tagged with its algorithm.
type Digest struct {
	typ  DigestType
	data []byte
}

// Compute hashes data with the algorithm identified by t.
func Compute(t DigestType, data []byte) (Digest, error) {
	h := t.New()
	if h == nil {
		return Digest{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	h.Write(data)
	return Digest{typ: t, data: h.Sum(nil)}, nil
}

// New wraps raw hash output. The length of raw must equal t.Size().
func New(t DigestType, raw []byte) (Digest, error) {
	if !t.Valid() {
		return Digest{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	if len(raw) != t.Size() {
		return Digest{}, fmt.Errorf("%w: %s requires %d bytes, got %d",
			ErrInvalidDigestLength, t, t.Size(), len(raw))
	}
	return Digest{typ: t, data: clone(raw)}, nil
}

// FromTypedData decodes tag || digest bytes.
func FromTypedData(data []byte) (Digest, error) {
	t, payload, err := typed.Decode[DigestType](data)
	if err != nil {
		return Digest{}, err
	}
	return New(t, payload)
}

// ParseString decodes the display form produced by String.
func ParseString(s string) (Digest, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return Digest{}, err
	}
	return FromTypedData(data)
}

// Type returns the hash algorithm.
func (d Digest) Type() DigestType { return d.typ }

// Bytes returns a copy of the raw hash output.
func (d Digest) Bytes() []byte { return clone(d.data) }

// TypedData returns tag || digest bytes, or nil for the zero Digest.
func (d Digest) TypedData() []byte {
	if d.data == nil {
		return nil
	}
	return typed.Encode(d.typ, d.data)
}

// Equal compares typed data.
func (d Digest) Equal(other Digest) bool {
	return typed.Equal(d.TypedData(), other.TypedData())
}

func (d Digest) String() string {
	if d.data == nil {
		return "<empty digest>"
	}
	return string(typed.MarshalText(d.TypedData()))
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	if d.data == nil {
		return nil, fmt.Errorf("%w: empty digest", typed.ErrBadTypeData)
	}
	return typed.MarshalText(d.TypedData()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := FromTypedData(data)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
