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


// Package symmetric provides an immutable symmetric key container and HMAC
// helpers keyed by it.
package symmetric

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
)

var (
	// ErrInvalidKeySize is returned for a bit size other than 128, 192 or 256.
	ErrInvalidKeySize = errors.New("symmetric: invalid key size")

	// ErrEmptyKey is returned when constructing a key from no bytes.
	ErrEmptyKey = errors.New("symmetric: empty key")
)

// Key is an immutable symmetric key. The zero Key is empty and unusable.
type Key struct {
	data []byte
}

// New generates a random key of the given size in bits.
func New(bits int) (Key, error) {
	switch bits {
	case 128, 192, 256:
	default:
		return Key{}, fmt.Errorf("%w: %d bits", ErrInvalidKeySize, bits)
	}
	data := make([]byte, bits/8)
	if _, err := rand.Read(data); err != nil {
		return Key{}, fmt.Errorf("symmetric: failed to read random bytes: %w", err)
	}
	return Key{data: data}, nil
}

// FromBytes copies raw into a new Key.
func FromBytes(raw []byte) (Key, error) {
	if len(raw) == 0 {
		return Key{}, ErrEmptyKey
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return Key{data: data}, nil
}

// Bytes returns a copy of the key material.
func (k Key) Bytes() []byte {
	if k.data == nil {
		return nil
	}
	out := make([]byte, len(k.data))
	copy(out, k.data)
	return out
}

// Size returns the key length in bytes.
func (k Key) Size() int { return len(k.data) }

// Bits returns the key length in bits.
func (k Key) Bits() int { return 8 * len(k.data) }

// Equal compares key material in constant time.
func (k Key) Equal(other Key) bool {
	if k.data == nil || other.data == nil {
		return false
	}
	return subtle.ConstantTimeCompare(k.data, other.data) == 1
}

// String never prints key material.
func (k Key) String() string {
	return fmt.Sprintf("<symmetric key: %d bits>", k.Bits())
}

// MarshalText encodes the raw key as standard base64.
func (k Key) MarshalText() ([]byte, error) {
	if k.data == nil {
		return nil, ErrEmptyKey
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(k.data)))
	base64.StdEncoding.Encode(out, k.data)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(raw, text)
	if err != nil {
		return fmt.Errorf("symmetric: invalid key encoding: %w", err)
	}
	v, err := FromBytes(raw[:n])
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// AuthenticationCode is an HMAC output tagged with its hash algorithm.
type AuthenticationCode struct {
	Type digest.DigestType
	MAC  []byte
}

// Equal compares two codes in constant time.
func (a AuthenticationCode) Equal(other AuthenticationCode) bool {
	return a.Type == other.Type && hmac.Equal(a.MAC, other.MAC)
}

// HMAC authenticates data with key using the hash identified by t.
func HMAC(t digest.DigestType, key Key, data []byte) (AuthenticationCode, error) {
	if !t.Valid() {
		return AuthenticationCode{}, fmt.Errorf("symmetric: unsupported digest type %s", t)
	}
	if key.data == nil {
		return AuthenticationCode{}, ErrEmptyKey
	}
	mac := hmac.New(t.New, key.data)
	mac.Write(data)
	return AuthenticationCode{Type: t, MAC: mac.Sum(nil)}, nil
}

// VerifyHMAC reports whether code authenticates data under key.
func VerifyHMAC(code AuthenticationCode, key Key, data []byte) bool {
	expected, err := HMAC(code.Type, key, data)
	if err != nil {
		return false
	}
	return expected.Equal(code)
}
