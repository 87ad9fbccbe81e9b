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


package keys

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/signature"
	"github.com/jeremyhahn/go-keytypes/pkg/typed"
)

// PublicKey is an immutable public key. Exactly one of the algorithm fields
// is set, selected by typ. raw holds the canonical payload: 32 bytes for
// Curve25519 types and the uncompressed X9.63 point for P curves.
type PublicKey struct {
	typ    KeyType
	raw    []byte
	x25519 *ecdh.PublicKey
	ed     ed25519.PublicKey
	ec     *ecdsa.PublicKey
}

// NewPublicKey decodes raw public key bytes for t. P-curve keys are accepted
// in uncompressed (0x04 || X || Y), compressed (0x02/0x03 || X) or compact
// (X only) form.
func NewPublicKey(t KeyType, raw []byte) (PublicKey, error) {
	switch t {
	case Curve25519KeyAgreement:
		k, err := ecdh.X25519().NewPublicKey(raw)
		if err != nil {
			return PublicKey{}, badKeyData(t, "%v", err)
		}
		return PublicKey{typ: t, raw: k.Bytes(), x25519: k}, nil
	case Curve25519Signing:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, badKeyData(t, "expected %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		k := make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(k, raw)
		return PublicKey{typ: t, raw: []byte(k), ed: k}, nil
	case P256KeyAgreement, P384KeyAgreement, P521KeyAgreement,
		P256Signing, P384Signing, P521Signing:
		k, err := decodePoint(t, raw)
		if err != nil {
			return PublicKey{}, err
		}
		return publicFromECDSA(t, k)
	case P256SecureEnclaveKeyAgreement, P256SecureEnclaveSigning:
		return PublicKey{}, fmt.Errorf("%w: %s", ErrCannotStorePublicKeysInSecureEnclave, t)
	}
	return PublicKey{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
}

// PublicKeyFromX963 decodes an uncompressed X9.63 point. Curve25519 types
// have no X9.63 form.
func PublicKeyFromX963(t KeyType, data []byte) (PublicKey, error) {
	if t.IsSecureEnclave() || !t.Valid() {
		return NewPublicKey(t, data)
	}
	if t.curve() == nil {
		return PublicKey{}, fmt.Errorf("%w: %s", ErrNoX963Representation, t)
	}
	if n := 1 + 2*t.scalarSize(); len(data) != n {
		return PublicKey{}, badKeyData(t, "X9.63 public key must be %d bytes, got %d", n, len(data))
	}
	return NewPublicKey(t, data)
}

// PublicKeyFromTypedData decodes tag || raw public key.
func PublicKeyFromTypedData(data []byte) (PublicKey, error) {
	t, payload, err := typed.Decode[KeyType](data)
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKey(t, payload)
}

// ParsePublicKey decodes the display form produced by String. A JSON quoted
// string is also accepted.
func ParsePublicKey(s string) (PublicKey, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromTypedData(data)
}

func publicFromECDSA(t KeyType, k *ecdsa.PublicKey) (PublicKey, error) {
	if k.Curve != t.curve() {
		return PublicKey{}, badKeyData(t, "public key is on %s", k.Curve.Params().Name)
	}
	raw, err := k.Bytes()
	if err != nil {
		return PublicKey{}, badKeyData(t, "%v", err)
	}
	return PublicKey{typ: t, raw: raw, ec: k}, nil
}

func decodePoint(t KeyType, raw []byte) (*ecdsa.PublicKey, error) {
	curve := t.curve()
	n := t.scalarSize()

	switch len(raw) {
	case 1 + 2*n:
		return parseUncompressed(t, raw)
	case 1 + n:
		x, y := elliptic.UnmarshalCompressed(curve, raw)
		if x == nil {
			return nil, badKeyData(t, "invalid compressed point")
		}
		return parseUncompressed(t, uncompressed(n, x, y))
	case n:
		// Compact form: the y coordinate is the smaller of y and p-y.
		x, y := elliptic.UnmarshalCompressed(curve, append([]byte{0x02}, raw...))
		if x == nil {
			return nil, badKeyData(t, "invalid compact point")
		}
		p := curve.Params().P
		if alt := new(big.Int).Sub(p, y); alt.Cmp(y) < 0 {
			y = alt
		}
		return parseUncompressed(t, uncompressed(n, x, y))
	}
	return nil, badKeyData(t, "unexpected public key length %d", len(raw))
}

func parseUncompressed(t KeyType, raw []byte) (*ecdsa.PublicKey, error) {
	k, err := ecdsa.ParseUncompressedPublicKey(t.curve(), raw)
	if err != nil {
		return nil, badKeyData(t, "%v", err)
	}
	return k, nil
}

func uncompressed(n int, x, y *big.Int) []byte {
	out := make([]byte, 1+2*n)
	out[0] = 0x04
	x.FillBytes(out[1 : 1+n])
	y.FillBytes(out[1+n:])
	return out
}

// Type returns the key type. It is never a secure enclave type.
func (k PublicKey) Type() KeyType { return k.typ }

// Bytes returns the raw public key: 32 bytes for Curve25519 types and the
// uncompressed X9.63 point for P curves.
func (k PublicKey) Bytes() []byte {
	if k.raw == nil {
		return nil
	}
	out := make([]byte, len(k.raw))
	copy(out, k.raw)
	return out
}

// X963 returns the uncompressed point for P-curve keys.
func (k PublicKey) X963() ([]byte, error) {
	if k.ec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoX963Representation, k.typ)
	}
	return k.Bytes(), nil
}

// CompressedBytes returns the SEC 1 compressed point for P-curve keys.
func (k PublicKey) CompressedBytes() ([]byte, error) {
	if k.ec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoX963Representation, k.typ)
	}
	n := k.typ.scalarSize()
	out := make([]byte, 1+n)
	out[0] = 0x02 | (k.raw[2*n] & 1)
	copy(out[1:], k.raw[1:1+n])
	return out, nil
}

// CryptoPublicKey returns the standard library form of the key:
// *ecdh.PublicKey, ed25519.PublicKey or *ecdsa.PublicKey.
func (k PublicKey) CryptoPublicKey() crypto.PublicKey {
	switch {
	case k.x25519 != nil:
		return k.x25519
	case k.ed != nil:
		return k.ed
	case k.ec != nil:
		return k.ec
	}
	return nil
}

// PKIX returns the DER SubjectPublicKeyInfo encoding.
func (k PublicKey) PKIX() ([]byte, error) {
	pub := k.CryptoPublicKey()
	if pub == nil {
		return nil, fmt.Errorf("%w: empty public key", ErrBadKeyData)
	}
	return x509.MarshalPKIXPublicKey(pub)
}

// TypedData returns tag || raw public key, or nil for the zero PublicKey.
func (k PublicKey) TypedData() []byte {
	if k.raw == nil {
		return nil
	}
	return typed.Encode(k.typ, k.raw)
}

func (k PublicKey) Equal(other PublicKey) bool {
	return typed.Equal(k.TypedData(), other.TypedData())
}

func (k PublicKey) String() string {
	if k.raw == nil {
		return "<empty public key>"
	}
	return string(typed.MarshalText(k.TypedData()))
}

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	if k.raw == nil {
		return nil, fmt.Errorf("%w: empty public key", typed.ErrBadTypeData)
	}
	return typed.MarshalText(k.TypedData()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := PublicKeyFromTypedData(data)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Verify reports whether sig is a valid signature of message by k. It
// returns false, never an error, when sig was made on a different curve or
// k cannot sign.
func (k PublicKey) Verify(sig signature.Signature, message []byte) bool {
	if !k.acceptsSignature(sig) {
		return false
	}
	if k.ed != nil {
		return ed25519.Verify(k.ed, message, sig.Bytes())
	}
	dt, _ := k.typ.DigestType()
	d, err := digest.Compute(dt, message)
	if err != nil {
		return false
	}
	return k.verifyECDSA(sig, d.Bytes())
}

// VerifyDigest verifies a signature produced by PrivateKey.SignDigest.
func (k PublicKey) VerifyDigest(sig signature.Signature, d digest.Digest) bool {
	if !k.acceptsSignature(sig) || d.TypedData() == nil {
		return false
	}
	if k.ed != nil {
		return ed25519.Verify(k.ed, d.Bytes(), sig.Bytes())
	}
	return k.verifyECDSA(sig, d.Bytes())
}

func (k PublicKey) acceptsSignature(sig signature.Signature) bool {
	want, ok := k.typ.SignatureType()
	return ok && sig.Type() == want && sig.TypedData() != nil
}

func (k PublicKey) verifyECDSA(sig signature.Signature, hash []byte) bool {
	if k.ec == nil {
		return false
	}
	r, s, ok := sig.RS()
	if !ok {
		return false
	}
	return ecdsa.Verify(k.ec, hash, r, s)
}
