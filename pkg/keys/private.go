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
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/signature"
	"github.com/jeremyhahn/go-keytypes/pkg/typed"
)

// PrivateKey is an immutable private key. Exactly one of x25519, ed, ec or
// enclave is set, selected by typ. The public half is derived once at
// construction.
type PrivateKey struct {
	typ     KeyType
	x25519  *ecdh.PrivateKey
	ed      ed25519.PrivateKey
	ec      *ecdsa.PrivateKey
	enclave EnclaveKey
	public  PublicKey
}

// Generate creates a new software key. Secure enclave types fail with
// ErrSecureEnclaveUnavailable; use GenerateInEnclave for those.
func Generate(t KeyType) (PrivateKey, error) {
	switch t {
	case Curve25519KeyAgreement:
		k, err := ecdh.X25519().GenerateKey(rand.Reader)
		if err != nil {
			return PrivateKey{}, fmt.Errorf("keys: failed to generate %s: %w", t, err)
		}
		return fromX25519(k), nil
	case Curve25519Signing:
		_, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return PrivateKey{}, fmt.Errorf("keys: failed to generate %s: %w", t, err)
		}
		return fromEd25519(k), nil
	case P256KeyAgreement, P384KeyAgreement, P521KeyAgreement,
		P256Signing, P384Signing, P521Signing:
		k, err := ecdsa.GenerateKey(t.curve(), rand.Reader)
		if err != nil {
			return PrivateKey{}, fmt.Errorf("keys: failed to generate %s: %w", t, err)
		}
		return fromECDSA(t, k)
	case P256SecureEnclaveKeyAgreement, P256SecureEnclaveSigning:
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrSecureEnclaveUnavailable, t)
	}
	return PrivateKey{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
}

// NewPrivateKey decodes raw private key bytes: a 32 byte X25519 scalar, a
// 32 byte Ed25519 seed or a big-endian P-curve scalar of the curve's size.
// Secure enclave keys cannot be constructed from bytes.
func NewPrivateKey(t KeyType, raw []byte) (PrivateKey, error) {
	switch t {
	case Curve25519KeyAgreement:
		k, err := ecdh.X25519().NewPrivateKey(raw)
		if err != nil {
			return PrivateKey{}, badKeyData(t, "%v", err)
		}
		return fromX25519(k), nil
	case Curve25519Signing:
		if len(raw) != ed25519.SeedSize {
			return PrivateKey{}, badKeyData(t, "expected %d byte seed, got %d", ed25519.SeedSize, len(raw))
		}
		return fromEd25519(ed25519.NewKeyFromSeed(raw)), nil
	case P256KeyAgreement, P384KeyAgreement, P521KeyAgreement,
		P256Signing, P384Signing, P521Signing:
		if len(raw) != t.scalarSize() {
			return PrivateKey{}, badKeyData(t, "expected %d byte scalar, got %d", t.scalarSize(), len(raw))
		}
		k, err := ecdsa.ParseRawPrivateKey(t.curve(), raw)
		if err != nil {
			return PrivateKey{}, badKeyData(t, "%v", err)
		}
		return fromECDSA(t, k)
	case P256SecureEnclaveKeyAgreement, P256SecureEnclaveSigning:
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrNoRawRepresentation, t)
	}
	return PrivateKey{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
}

// PrivateKeyFromX963 decodes 0x04 || X || Y || D for P-curve types.
func PrivateKeyFromX963(t KeyType, data []byte) (PrivateKey, error) {
	if t.IsSecureEnclave() {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrNoRawRepresentation, t)
	}
	if t.curve() == nil {
		if t.Valid() {
			return PrivateKey{}, fmt.Errorf("%w: %s", ErrNoX963Representation, t)
		}
		return PrivateKey{}, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	n := t.scalarSize()
	if len(data) != 1+3*n || data[0] != 0x04 {
		return PrivateKey{}, badKeyData(t, "X9.63 private key must be %d bytes starting with 0x04", 1+3*n)
	}
	k, err := NewPrivateKey(t, data[1+2*n:])
	if err != nil {
		return PrivateKey{}, err
	}
	if !bytes.Equal(k.public.raw, data[:1+2*n]) {
		return PrivateKey{}, badKeyData(t, "public point does not match private scalar")
	}
	return k, nil
}

// PrivateKeyFromTypedData decodes tag || raw private key.
func PrivateKeyFromTypedData(data []byte) (PrivateKey, error) {
	t, payload, err := typed.Decode[KeyType](data)
	if err != nil {
		return PrivateKey{}, err
	}
	return NewPrivateKey(t, payload)
}

// ParsePrivateKey decodes the form produced by MarshalText.
func ParsePrivateKey(s string) (PrivateKey, error) {
	data, err := typed.UnmarshalText([]byte(s))
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKeyFromTypedData(data)
}

func fromX25519(k *ecdh.PrivateKey) PrivateKey {
	pub := k.PublicKey()
	return PrivateKey{
		typ:    Curve25519KeyAgreement,
		x25519: k,
		public: PublicKey{typ: Curve25519KeyAgreement, raw: pub.Bytes(), x25519: pub},
	}
}

func fromEd25519(k ed25519.PrivateKey) PrivateKey {
	pub := k.Public().(ed25519.PublicKey)
	return PrivateKey{
		typ:    Curve25519Signing,
		ed:     k,
		public: PublicKey{typ: Curve25519Signing, raw: []byte(pub), ed: pub},
	}
}

func fromECDSA(t KeyType, k *ecdsa.PrivateKey) (PrivateKey, error) {
	pub, err := publicFromECDSA(t, &k.PublicKey)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{typ: t, ec: k, public: pub}, nil
}

// Type returns the key type.
func (k PrivateKey) Type() KeyType { return k.typ }

// PublicKey returns the public half. For secure enclave keys this is the
// plain P-256 type of the same role.
func (k PrivateKey) PublicKey() PublicKey { return k.public }

// IsEnclave reports whether the key is held by an Enclave.
func (k PrivateKey) IsEnclave() bool { return k.enclave != nil }

// EnclaveHandle returns the opaque handle of an enclave key.
func (k PrivateKey) EnclaveHandle() ([]byte, bool) {
	if k.enclave == nil {
		return nil, false
	}
	return k.enclave.Handle(), true
}

// Bytes returns the raw private key. Enclave keys fail with
// ErrNoRawRepresentation.
func (k PrivateKey) Bytes() ([]byte, error) {
	switch {
	case k.x25519 != nil:
		return k.x25519.Bytes(), nil
	case k.ed != nil:
		return k.ed.Seed(), nil
	case k.ec != nil:
		return k.ec.Bytes()
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRawRepresentation, k.typ)
}

// X963 returns 0x04 || X || Y || D for software P-curve keys.
func (k PrivateKey) X963() ([]byte, error) {
	if k.enclave != nil || k.typ == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRawRepresentation, k.typ)
	}
	if k.ec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoX963Representation, k.typ)
	}
	d, err := k.ec.Bytes()
	if err != nil {
		return nil, err
	}
	return append(k.public.Bytes(), d...), nil
}

// TypedData returns tag || raw private key. Enclave keys fail with
// ErrNoRawRepresentation.
func (k PrivateKey) TypedData() ([]byte, error) {
	raw, err := k.Bytes()
	if err != nil {
		return nil, err
	}
	return typed.Encode(k.typ, raw), nil
}

// Equal compares typed data. Keys without typed data are never equal.
func (k PrivateKey) Equal(other PrivateKey) bool {
	a, err := k.TypedData()
	if err != nil {
		return false
	}
	b, err := other.TypedData()
	if err != nil {
		return false
	}
	return typed.Equal(a, b)
}

// String never prints key material.
func (k PrivateKey) String() string {
	if k.enclave != nil {
		return fmt.Sprintf("<private key: %s (enclave)>", k.typ)
	}
	return fmt.Sprintf("<private key: %s>", k.typ)
}

// MarshalText implements encoding.TextMarshaler.
func (k PrivateKey) MarshalText() ([]byte, error) {
	data, err := k.TypedData()
	if err != nil {
		return nil, err
	}
	return typed.MarshalText(data), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PrivateKey) UnmarshalText(text []byte) error {
	data, err := typed.UnmarshalText(text)
	if err != nil {
		return err
	}
	v, err := PrivateKeyFromTypedData(data)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SharedSecret performs key agreement with peer. Both keys must support key
// agreement and share a curve.
func (k PrivateKey) SharedSecret(peer PublicKey) (SharedSecret, error) {
	if !k.typ.IsKeyAgreement() {
		return SharedSecret{}, noKeyAgreement(k.typ)
	}
	if !peer.typ.IsKeyAgreement() {
		return SharedSecret{}, noKeyAgreement(peer.typ)
	}
	if !sameFamily(k.typ, peer.typ) {
		return SharedSecret{}, mismatch(k.typ, peer.typ)
	}

	var (
		secret []byte
		err    error
	)
	switch k.typ {
	case Curve25519KeyAgreement:
		secret, err = k.x25519.ECDH(peer.x25519)
	case P256KeyAgreement, P384KeyAgreement, P521KeyAgreement:
		var priv *ecdh.PrivateKey
		var pub *ecdh.PublicKey
		if priv, err = k.ec.ECDH(); err == nil {
			if pub, err = peer.ec.ECDH(); err == nil {
				secret, err = priv.ECDH(pub)
			}
		}
	case P256SecureEnclaveKeyAgreement:
		var pub *ecdh.PublicKey
		if pub, err = peer.ec.ECDH(); err == nil {
			if secret, err = k.enclave.ECDH(pub); err != nil {
				return SharedSecret{}, fmt.Errorf("%w: %v", ErrSecureEnclaveFailure, err)
			}
		}
	default:
		return SharedSecret{}, noKeyAgreement(k.typ)
	}
	if err != nil {
		return SharedSecret{}, fmt.Errorf("keys: key agreement failed: %w", err)
	}
	return SharedSecret{data: secret}, nil
}

// Sign signs message. ECDSA keys hash it with the curve's digest (SHA-256,
// SHA-384 or SHA-512); Ed25519 signs it directly.
func (k PrivateKey) Sign(message []byte) (signature.Signature, error) {
	if !k.typ.IsSigning() {
		return signature.Signature{}, noSigning(k.typ)
	}
	if k.ed != nil {
		return signature.New(signature.Ed25519, ed25519.Sign(k.ed, message))
	}
	dt, _ := k.typ.DigestType()
	d, err := digest.Compute(dt, message)
	if err != nil {
		return signature.Signature{}, err
	}
	return k.SignDigest(d)
}

// SignDigest signs a precomputed digest without hashing it again. Ed25519
// keys sign the digest bytes as the message.
func (k PrivateKey) SignDigest(d digest.Digest) (signature.Signature, error) {
	st, ok := k.typ.SignatureType()
	if !ok {
		return signature.Signature{}, noSigning(k.typ)
	}
	if d.TypedData() == nil {
		return signature.Signature{}, fmt.Errorf("%w: empty digest", typed.ErrBadTypeData)
	}

	switch {
	case k.ed != nil:
		return signature.New(st, ed25519.Sign(k.ed, d.Bytes()))
	case k.ec != nil:
		r, s, err := ecdsa.Sign(rand.Reader, k.ec, d.Bytes())
		if err != nil {
			return signature.Signature{}, fmt.Errorf("keys: signing failed: %w", err)
		}
		return signature.FromRS(st, r, s)
	case k.enclave != nil:
		der, err := k.enclave.Sign(rand.Reader, d.Bytes(), d.Type().Hash())
		if err != nil {
			return signature.Signature{}, fmt.Errorf("%w: %v", ErrSecureEnclaveFailure, err)
		}
		return signature.FromDER(st, der)
	}
	return signature.Signature{}, noSigning(k.typ)
}
