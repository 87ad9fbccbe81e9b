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


// Package sealedbox provides a tagged union over AEAD ciphertext containers.
//
// A sealed box is carried in its combined form: nonce (12 bytes) ||
// ciphertext || authentication tag (16 bytes). Both AES-GCM and
// ChaCha20-Poly1305 share this layout.
package sealedbox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/nonce"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
	"github.com/jeremyhahn/go-keytypes/pkg/typed"
	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the authentication tag length of both supported ciphers.
const TagSize = 16

// MinSize is the length of a combined box with an empty plaintext.
const MinSize = nonce.Size + TagSize

var (
	// ErrNonceTypeMismatch is returned when sealing with a nonce made for a
	// different cipher.
	ErrNonceTypeMismatch = errors.New("sealedbox: nonce type mismatch")

	// ErrInvalidSealedBox is returned when combined bytes are too short.
	ErrInvalidSealedBox = errors.New("sealedbox: invalid sealed box")

	// ErrInvalidKey is returned when the symmetric key size does not suit the
	// cipher.
	ErrInvalidKey = errors.New("sealedbox: invalid key")

	// ErrAuthenticationFailed is returned by Open when the tag does not
	// verify, typically because the key is wrong or the box was modified.
	ErrAuthenticationFailed = errors.New("sealedbox: authentication failed")
)

// NonceTypeMismatchError reports the box type and the offending nonce type.
type NonceTypeMismatchError struct {
	Box   SealedBoxType
	Nonce nonce.NonceType
}

func (e *NonceTypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s box, %s nonce", ErrNonceTypeMismatch, e.Box, e.Nonce)
}

func (e *NonceTypeMismatchError) Unwrap() error { return ErrNonceTypeMismatch }

// SealedBoxType identifies the AEAD of a SealedBox.
type SealedBoxType uint8

const (
	AESGCM     SealedBoxType = 2
	ChaChaPoly SealedBoxType = 3
)

// Types lists every SealedBoxType in tag order.
var Types = []SealedBoxType{AESGCM, ChaChaPoly}

func (t SealedBoxType) Valid() bool {
	return t == AESGCM || t == ChaChaPoly
}

func (t SealedBoxType) String() string {
	switch t {
	case AESGCM:
		return "AESGCM"
	case ChaChaPoly:
		return "ChaChaPoly"
	}
	return fmt.Sprintf("SealedBoxType(%d)", uint8(t))
}

// ParseType parses the name returned by SealedBoxType.String.
func ParseType(name string) (SealedBoxType, error) {
	for _, t := range Types {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown sealed box type %q", typed.ErrBadTypeData, name)
}

// NonceType returns the nonce variant used with t.
func (t SealedBoxType) NonceType() nonce.NonceType {
	switch t {
	case AESGCM:
		return nonce.AESGCM
	case ChaChaPoly:
		return nonce.ChaChaPoly
	}
	return 0
}

// RandomNonce draws a fresh nonce for t.
func (t SealedBoxType) RandomNonce() (nonce.Nonce, error) {
	return nonce.Random(t.NonceType())
}

func (t SealedBoxType) aead(key symmetric.Key) (cipher.AEAD, error) {
	raw := key.Bytes()
	switch t {
	case AESGCM:
		block, err := aes.NewCipher(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return cipher.NewGCM(block)
	case ChaChaPoly:
		if len(raw) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: %s requires a %d byte key, got %d",
				ErrInvalidKey, t, chacha20poly1305.KeySize, len(raw))
		}
		return chacha20poly1305.New(raw)
	}
	return nil, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
}

// SealedBox is an immutable authenticated ciphertext.
type SealedBox struct {
	typ      SealedBoxType
	combined []byte
}

// Seal encrypts plaintext under key. The nonce must be of the cipher's
// nonce type.
func Seal(t SealedBoxType, n nonce.Nonce, key symmetric.Key, plaintext []byte) (SealedBox, error) {
	return SealWithAAD(t, n, key, plaintext, nil)
}

// SealWithAAD is Seal with additional authenticated data.
func SealWithAAD(t SealedBoxType, n nonce.Nonce, key symmetric.Key, plaintext, aad []byte) (SealedBox, error) {
	if !t.Valid() {
		return SealedBox{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	if n.Type() != t.NonceType() || n.TypedData() == nil {
		return SealedBox{}, &NonceTypeMismatchError{Box: t, Nonce: n.Type()}
	}
	aead, err := t.aead(key)
	if err != nil {
		return SealedBox{}, err
	}
	nonceBytes := n.Bytes()
	combined := make([]byte, 0, len(nonceBytes)+len(plaintext)+aead.Overhead())
	combined = append(combined, nonceBytes...)
	combined = aead.Seal(combined, nonceBytes, plaintext, aad)
	return SealedBox{typ: t, combined: combined}, nil
}

// FromCombined wraps nonce || ciphertext || tag.
func FromCombined(t SealedBoxType, combined []byte) (SealedBox, error) {
	if !t.Valid() {
		return SealedBox{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	if len(combined) < MinSize {
		return SealedBox{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidSealedBox, len(combined), MinSize)
	}
	data := make([]byte, len(combined))
	copy(data, combined)
	return SealedBox{typ: t, combined: data}, nil
}

// FromTypedData decodes tag || combined box.
func FromTypedData(data []byte) (SealedBox, error) {
	t, payload, err := typed.Decode[SealedBoxType](data)
	if err != nil {
		return SealedBox{}, err
	}
	return FromCombined(t, payload)
}

// ParseString decodes the display form produced by String.
func ParseString(s string) (SealedBox, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return SealedBox{}, err
	}
	return FromTypedData(data)
}

// Open decrypts and authenticates the box.
func (b SealedBox) Open(key symmetric.Key) ([]byte, error) {
	return b.OpenWithAAD(key, nil)
}

// OpenWithAAD decrypts a box sealed with SealWithAAD.
func (b SealedBox) OpenWithAAD(key symmetric.Key, aad []byte) ([]byte, error) {
	if len(b.combined) < MinSize {
		return nil, ErrInvalidSealedBox
	}
	aead, err := b.typ.aead(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, b.combined[:nonce.Size], b.combined[nonce.Size:], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return plaintext, nil
}

func (b SealedBox) Type() SealedBoxType { return b.typ }

// Nonce returns the nonce the box was sealed with.
func (b SealedBox) Nonce() nonce.Nonce {
	if len(b.combined) < MinSize {
		return nonce.Nonce{}
	}
	// The prefix is always nonce.Size bytes of a valid type.
	n, _ := nonce.New(b.typ.NonceType(), b.combined[:nonce.Size])
	return n
}

// Ciphertext returns the encrypted payload without nonce or tag.
func (b SealedBox) Ciphertext() []byte {
	if len(b.combined) < MinSize {
		return nil
	}
	return clone(b.combined[nonce.Size : len(b.combined)-TagSize])
}

// Tag returns the authentication tag.
func (b SealedBox) Tag() []byte {
	if len(b.combined) < MinSize {
		return nil
	}
	return clone(b.combined[len(b.combined)-TagSize:])
}

// Combined returns nonce || ciphertext || tag.
func (b SealedBox) Combined() []byte { return clone(b.combined) }

// TypedData returns tag || combined box, or nil for the zero SealedBox.
func (b SealedBox) TypedData() []byte {
	if b.combined == nil {
		return nil
	}
	return typed.Encode(b.typ, b.combined)
}

// Equal compares typed data, so two boxes are equal when their type and
// combined bytes match.
func (b SealedBox) Equal(other SealedBox) bool {
	return typed.Equal(b.TypedData(), other.TypedData())
}

func (b SealedBox) String() string {
	if b.combined == nil {
		return "<empty sealed box>"
	}
	return string(typed.MarshalText(b.TypedData()))
}

// MarshalText implements encoding.TextMarshaler.
func (b SealedBox) MarshalText() ([]byte, error) {
	if b.combined == nil {
		return nil, fmt.Errorf("%w: empty sealed box", typed.ErrBadTypeData)
	}
	return typed.MarshalText(b.TypedData()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *SealedBox) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := FromTypedData(data)
	if err != nil {
		return err
	}
	*b = v
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
