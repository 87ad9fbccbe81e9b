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


// Package signature provides a tagged union over signature encodings.
//
// ECDSA signatures are carried as fixed-width big-endian r || s, each half
// padded to the curve's scalar size. Ed25519 signatures are the 64 bytes
// defined by RFC 8032.
package signature

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// ErrInvalidSignatureLength is returned when raw signature bytes do not
	// match the fixed width of the declared type.
	ErrInvalidSignatureLength = errors.New("signature: invalid signature length")

	// ErrInvalidDER is returned when an ASN.1 ECDSA signature cannot be parsed
	// or does not fit the declared curve.
	ErrInvalidDER = errors.New("signature: invalid DER encoding")

	// ErrNoDERRepresentation is returned by DER for Ed25519 signatures.
	ErrNoDERRepresentation = errors.New("signature: type has no DER representation")
)

// SignatureType identifies the algorithm and curve of a Signature.
type SignatureType uint8

const (
	Ed25519 SignatureType = 1
	P256    SignatureType = 2
	P384    SignatureType = 3
	P521    SignatureType = 5
)

// Types lists every SignatureType in tag order.
var Types = []SignatureType{Ed25519, P256, P384, P521}

func (t SignatureType) Valid() bool {
	switch t {
	case Ed25519, P256, P384, P521:
		return true
	}
	return false
}

func (t SignatureType) String() string {
	switch t {
	case Ed25519:
		return "Ed25519"
	case P256:
		return "P256"
	case P384:
		return "P384"
	case P521:
		return "P521"
	}
	return fmt.Sprintf("SignatureType(%d)", uint8(t))
}

// ScalarSize returns the width of r and s for ECDSA types and 0 otherwise.
func (t SignatureType) ScalarSize() int {
	switch t {
	case P256:
		return 32
	case P384:
		return 48
	case P521:
		return 66
	}
	return 0
}

// Size returns the raw signature length for t.
func (t SignatureType) Size() int {
	if t == Ed25519 {
		return ed25519.SignatureSize
	}
	return 2 * t.ScalarSize()
}

// Signature is an immutable signature tagged with its algorithm.
type Signature struct {
	typ  SignatureType
	data []byte
}

// New wraps a raw signature of exactly t.Size() bytes.
func New(t SignatureType, raw []byte) (Signature, error) {
	if !t.Valid() {
		return Signature{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	if len(raw) != t.Size() {
		return Signature{}, fmt.Errorf("%w: %s requires %d bytes, got %d",
			ErrInvalidSignatureLength, t, t.Size(), len(raw))
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return Signature{typ: t, data: data}, nil
}

// FromRS builds an ECDSA signature from its integer components.
func FromRS(t SignatureType, r, s *big.Int) (Signature, error) {
	n := t.ScalarSize()
	if n == 0 {
		return Signature{}, fmt.Errorf("%w: %s", ErrNoDERRepresentation, t)
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > 8*n || s.BitLen() > 8*n {
		return Signature{}, fmt.Errorf("%w: r or s out of range for %s", ErrInvalidDER, t)
	}
	data := make([]byte, 2*n)
	r.FillBytes(data[:n])
	s.FillBytes(data[n:])
	return Signature{typ: t, data: data}, nil
}

// FromDER converts an ASN.1 SEQUENCE { r INTEGER, s INTEGER } signature.
func FromDER(t SignatureType, der []byte) (Signature, error) {
	if t.ScalarSize() == 0 {
		return Signature{}, fmt.Errorf("%w: %s", ErrNoDERRepresentation, t)
	}
	var inner cryptobyte.String
	r, s := new(big.Int), new(big.Int)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return Signature{}, ErrInvalidDER
	}
	return FromRS(t, r, s)
}

// FromTypedData decodes tag || raw signature bytes.
func FromTypedData(data []byte) (Signature, error) {
	t, payload, err := typed.Decode[SignatureType](data)
	if err != nil {
		return Signature{}, err
	}
	return New(t, payload)
}

// ParseString decodes the display form produced by String.
func ParseString(s string) (Signature, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return Signature{}, err
	}
	return FromTypedData(data)
}

func (sig Signature) Type() SignatureType { return sig.typ }

// Bytes returns a copy of the raw signature.
func (sig Signature) Bytes() []byte {
	if sig.data == nil {
		return nil
	}
	out := make([]byte, len(sig.data))
	copy(out, sig.data)
	return out
}

// RS returns the ECDSA components. ok is false for Ed25519 and the zero value.
func (sig Signature) RS() (r, s *big.Int, ok bool) {
	n := sig.typ.ScalarSize()
	if n == 0 || len(sig.data) != 2*n {
		return nil, nil, false
	}
	return new(big.Int).SetBytes(sig.data[:n]), new(big.Int).SetBytes(sig.data[n:]), true
}

// DER returns the ASN.1 encoding of an ECDSA signature.
func (sig Signature) DER() ([]byte, error) {
	r, s, ok := sig.RS()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDERRepresentation, sig.typ)
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

// TypedData returns tag || raw signature, or nil for the zero Signature.
func (sig Signature) TypedData() []byte {
	if sig.data == nil {
		return nil
	}
	return typed.Encode(sig.typ, sig.data)
}

func (sig Signature) Equal(other Signature) bool {
	return typed.Equal(sig.TypedData(), other.TypedData())
}

func (sig Signature) String() string {
	if sig.data == nil {
		return "<empty signature>"
	}
	return string(typed.MarshalText(sig.TypedData()))
}

// MarshalText implements encoding.TextMarshaler.
func (sig Signature) MarshalText() ([]byte, error) {
	if sig.data == nil {
		return nil, fmt.Errorf("%w: empty signature", typed.ErrBadTypeData)
	}
	return typed.MarshalText(sig.TypedData()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (sig *Signature) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := FromTypedData(data)
	if err != nil {
		return err
	}
	*sig = v
	return nil
}
