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


// Package nonce provides a tagged union over AEAD nonces.
package nonce

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
)

// Size is the nonce length used by both AES-GCM and ChaCha20-Poly1305.
const Size = 12

// ErrInvalidNonceLength is returned when raw nonce bytes are not Size bytes.
var ErrInvalidNonceLength = errors.New("nonce: invalid nonce length")

// NonceType identifies the AEAD a Nonce is intended for.
type NonceType uint8

const (
	AESGCM     NonceType = 2
	ChaChaPoly NonceType = 3
)

// Types lists every NonceType in tag order.
var Types = []NonceType{AESGCM, ChaChaPoly}

// Valid reports whether t is an assigned nonce tag.
func (t NonceType) Valid() bool {
	return t == AESGCM || t == ChaChaPoly
}

func (t NonceType) String() string {
	switch t {
	case AESGCM:
		return "AESGCM"
	case ChaChaPoly:
		return "ChaChaPoly"
	}
	return fmt.Sprintf("NonceType(%d)", uint8(t))
}

// Nonce is an immutable AEAD nonce tagged with its cipher.
type Nonce struct {
	typ  NonceType
	data []byte
}

// Random draws a fresh nonce from crypto/rand.
func Random(t NonceType) (Nonce, error) {
	if !t.Valid() {
		return Nonce{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	data := make([]byte, Size)
	if _, err := rand.Read(data); err != nil {
		return Nonce{}, fmt.Errorf("nonce: failed to read random bytes: %w", err)
	}
	return Nonce{typ: t, data: data}, nil
}

// New wraps raw nonce bytes.
func New(t NonceType, raw []byte) (Nonce, error) {
	if !t.Valid() {
		return Nonce{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	if len(raw) != Size {
		return Nonce{}, fmt.Errorf("%w: %s requires %d bytes, got %d",
			ErrInvalidNonceLength, t, Size, len(raw))
	}
	data := make([]byte, Size)
	copy(data, raw)
	return Nonce{typ: t, data: data}, nil
}

// FromTypedData decodes tag || nonce bytes.
func FromTypedData(data []byte) (Nonce, error) {
	t, payload, err := typed.Decode[NonceType](data)
	if err != nil {
		return Nonce{}, err
	}
	return New(t, payload)
}

// ParseString decodes the display form produced by String.
func ParseString(s string) (Nonce, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return Nonce{}, err
	}
	return FromTypedData(data)
}

func (n Nonce) Type() NonceType { return n.typ }

// Bytes returns a copy of the raw nonce.
func (n Nonce) Bytes() []byte {
	if n.data == nil {
		return nil
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out
}

// TypedData returns tag || nonce bytes, or nil for the zero Nonce.
func (n Nonce) TypedData() []byte {
	if n.data == nil {
		return nil
	}
	return typed.Encode(n.typ, n.data)
}

func (n Nonce) Equal(other Nonce) bool {
	return typed.Equal(n.TypedData(), other.TypedData())
}

func (n Nonce) String() string {
	if n.data == nil {
		return "<empty nonce>"
	}
	return string(typed.MarshalText(n.TypedData()))
}

// MarshalText implements encoding.TextMarshaler.
func (n Nonce) MarshalText() ([]byte, error) {
	if n.data == nil {
		return nil, fmt.Errorf("%w: empty nonce", typed.ErrBadTypeData)
	}
	return typed.MarshalText(n.TypedData()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nonce) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := FromTypedData(data)
	if err != nil {
		return err
	}
	*n = v
	return nil
}
