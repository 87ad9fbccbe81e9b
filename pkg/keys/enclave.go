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
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
)

// Enclave is a hardware key isolation service. Keys created by an Enclave
// are P-256 and never leave it; callers persist the opaque handle and reload
// the key with LoadKey.
type Enclave interface {
	// GenerateKey creates a new P-256 key for a secure enclave key type.
	GenerateKey(ctx context.Context, t KeyType) (EnclaveKey, error)

	// LoadKey reloads a key previously returned by GenerateKey.
	LoadKey(ctx context.Context, t KeyType, handle []byte) (EnclaveKey, error)

	// DeleteKey destroys the key identified by handle.
	DeleteKey(ctx context.Context, handle []byte) error

	// Close releases the session with the underlying device.
	Close() error
}

// EnclaveKey is a P-256 private key held by an Enclave.
//
// Public must return an *ecdsa.PublicKey on the P-256 curve. Sign follows the
// crypto.Signer contract and returns an ASN.1 DER ECDSA signature over a
// SHA-256 digest.
type EnclaveKey interface {
	crypto.Signer

	// Handle returns the opaque identifier used to reload the key.
	Handle() []byte

	// ECDH returns the x-coordinate of the shared point with peer.
	ECDH(peer *ecdh.PublicKey) ([]byte, error)
}

// GenerateInEnclave creates a secure enclave key of type t. A nil enclave
// fails with ErrSecureEnclaveUnavailable; device errors are wrapped in
// ErrSecureEnclaveFailure.
func GenerateInEnclave(ctx context.Context, enclave Enclave, t KeyType) (PrivateKey, error) {
	if !t.IsSecureEnclave() {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrNotSecureEnclaveType, t)
	}
	if enclave == nil {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrSecureEnclaveUnavailable, t)
	}
	key, err := enclave.GenerateKey(ctx, t)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %v", ErrSecureEnclaveFailure, err)
	}
	return fromEnclaveKey(t, key)
}

// RestoreEnclaveKey reloads a secure enclave key from its handle.
func RestoreEnclaveKey(ctx context.Context, enclave Enclave, t KeyType, handle []byte) (PrivateKey, error) {
	if !t.IsSecureEnclave() {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrNotSecureEnclaveType, t)
	}
	if enclave == nil {
		return PrivateKey{}, fmt.Errorf("%w: %s", ErrSecureEnclaveUnavailable, t)
	}
	key, err := enclave.LoadKey(ctx, t, handle)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %v", ErrSecureEnclaveFailure, err)
	}
	return fromEnclaveKey(t, key)
}

func fromEnclaveKey(t KeyType, key EnclaveKey) (PrivateKey, error) {
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return PrivateKey{}, fmt.Errorf("%w: enclave returned a non P-256 public key", ErrSecureEnclaveFailure)
	}
	public, err := publicFromECDSA(t.PublicKeyType(), pub)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %v", ErrSecureEnclaveFailure, err)
	}
	return PrivateKey{typ: t, enclave: key, public: public}, nil
}
