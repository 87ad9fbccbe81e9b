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


// Package keys implements the asymmetric key model: a closed set of key types
// spanning X25519, Ed25519 and the NIST P curves, in software or behind a
// hardware enclave, with key agreement and signing dispatched per type.
//
// Private and public keys serialize as typed data (tag || raw key) and display
// as standard base64 of that encoding. Keys held by an Enclave never expose
// raw material; they are persisted by opaque handle instead.
package keys

import (
	"crypto/elliptic"
	"fmt"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/signature"
	"github.com/jeremyhahn/go-keytypes/pkg/typed"
)

// KeyType identifies algorithm, role and storage backend of a key. The
// numeric values are part of the wire format and never change.
type KeyType uint8

const (
	Curve25519KeyAgreement        KeyType = 1
	P256KeyAgreement              KeyType = 2
	P384KeyAgreement              KeyType = 3
	P521KeyAgreement              KeyType = 4
	Curve25519Signing             KeyType = 5
	P256Signing                   KeyType = 6
	P384Signing                   KeyType = 7
	P521Signing                   KeyType = 8
	P256SecureEnclaveKeyAgreement KeyType = 9
	P256SecureEnclaveSigning      KeyType = 10
)

// Types lists every KeyType in tag order.
var Types = []KeyType{
	Curve25519KeyAgreement,
	P256KeyAgreement,
	P384KeyAgreement,
	P521KeyAgreement,
	Curve25519Signing,
	P256Signing,
	P384Signing,
	P521Signing,
	P256SecureEnclaveKeyAgreement,
	P256SecureEnclaveSigning,
}

var keyTypeNames = map[KeyType]string{
	Curve25519KeyAgreement:        "Curve25519KeyAgreement",
	P256KeyAgreement:              "P256KeyAgreement",
	P384KeyAgreement:              "P384KeyAgreement",
	P521KeyAgreement:              "P521KeyAgreement",
	Curve25519Signing:             "Curve25519Signing",
	P256Signing:                   "P256Signing",
	P384Signing:                   "P384Signing",
	P521Signing:                   "P521Signing",
	P256SecureEnclaveKeyAgreement: "P256SecureEnclaveKeyAgreement",
	P256SecureEnclaveSigning:      "P256SecureEnclaveSigning",
}

func (t KeyType) Valid() bool {
	_, ok := keyTypeNames[t]
	return ok
}

func (t KeyType) String() string {
	if name, ok := keyTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("KeyType(%d)", uint8(t))
}

// ParseKeyType parses the name returned by KeyType.String.
func ParseKeyType(name string) (KeyType, error) {
	for t, n := range keyTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown key type %q", typed.ErrBadTypeData, name)
}

// MarshalText encodes the type by name, for configuration and records.
func (t KeyType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown type %d", typed.ErrBadTypeData, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *KeyType) UnmarshalText(text []byte) error {
	v, err := ParseKeyType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// IsKeyAgreement reports whether keys of this type can perform key agreement.
func (t KeyType) IsKeyAgreement() bool {
	switch t {
	case Curve25519KeyAgreement, P256KeyAgreement, P384KeyAgreement, P521KeyAgreement,
		P256SecureEnclaveKeyAgreement:
		return true
	}
	return false
}

// IsSigning reports whether keys of this type can sign.
func (t KeyType) IsSigning() bool {
	switch t {
	case Curve25519Signing, P256Signing, P384Signing, P521Signing, P256SecureEnclaveSigning:
		return true
	}
	return false
}

// IsSecureEnclave reports whether the private key lives in an Enclave.
func (t KeyType) IsSecureEnclave() bool {
	return t == P256SecureEnclaveKeyAgreement || t == P256SecureEnclaveSigning
}

// PublicKeyType returns the type of the public half. Secure enclave types
// collapse onto the plain P-256 type of the same role.
func (t KeyType) PublicKeyType() KeyType {
	switch t {
	case P256SecureEnclaveKeyAgreement:
		return P256KeyAgreement
	case P256SecureEnclaveSigning:
		return P256Signing
	}
	return t
}

// SignatureType returns the signature variant produced by a signing key.
func (t KeyType) SignatureType() (signature.SignatureType, bool) {
	switch t {
	case Curve25519Signing:
		return signature.Ed25519, true
	case P256Signing, P256SecureEnclaveSigning:
		return signature.P256, true
	case P384Signing:
		return signature.P384, true
	case P521Signing:
		return signature.P521, true
	}
	return 0, false
}

// DigestType returns the hash applied to messages before ECDSA signing.
// Ed25519 hashes internally and reports false.
func (t KeyType) DigestType() (digest.DigestType, bool) {
	switch t.PublicKeyType() {
	case P256KeyAgreement, P256Signing:
		return digest.SHA256, true
	case P384KeyAgreement, P384Signing:
		return digest.SHA384, true
	case P521KeyAgreement, P521Signing:
		return digest.SHA512, true
	}
	return 0, false
}

// curve returns the NIST curve for P-curve types and nil otherwise.
func (t KeyType) curve() elliptic.Curve {
	switch t.PublicKeyType() {
	case P256KeyAgreement, P256Signing:
		return elliptic.P256()
	case P384KeyAgreement, P384Signing:
		return elliptic.P384()
	case P521KeyAgreement, P521Signing:
		return elliptic.P521()
	}
	return nil
}

// scalarSize returns the private scalar length for P-curve types.
func (t KeyType) scalarSize() int {
	if c := t.curve(); c != nil {
		return (c.Params().BitSize + 7) / 8
	}
	return 0
}

// sameFamily reports whether two types share curve and role once secure
// enclave variants are collapsed.
func sameFamily(a, b KeyType) bool {
	return a.PublicKeyType() == b.PublicKeyType()
}
