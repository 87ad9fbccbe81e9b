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
	"errors"
	"fmt"
)

var (
	// ErrBadKeyData is returned when raw key bytes are the wrong length or
	// do not describe a valid key for the declared type.
	ErrBadKeyData = errors.New("keys: bad key data")

	// ErrKeyTypeMismatch is returned when two keys of different curve
	// families are combined.
	ErrKeyTypeMismatch = errors.New("keys: key type mismatch")

	// ErrKeyTypeDoesNotSupportKeyAgreement is returned when a signing key is
	// used for key agreement.
	ErrKeyTypeDoesNotSupportKeyAgreement = errors.New("keys: key type does not support key agreement")

	// ErrKeyTypeDoesNotSupportSigning is returned when a key agreement key is
	// used to sign.
	ErrKeyTypeDoesNotSupportSigning = errors.New("keys: key type does not support signing")

	// ErrNoRawRepresentation is returned for keys held by an Enclave.
	ErrNoRawRepresentation = errors.New("keys: key has no raw representation")

	// ErrNoX963Representation is returned for Curve25519 keys.
	ErrNoX963Representation = errors.New("keys: key has no X9.63 representation")

	// ErrCannotStorePublicKeysInSecureEnclave is returned when constructing a
	// public key with a secure enclave type.
	ErrCannotStorePublicKeysInSecureEnclave = errors.New("keys: cannot store public keys in secure enclave")

	// ErrSecureEnclaveUnavailable is returned when a secure enclave type is
	// requested without an Enclave.
	ErrSecureEnclaveUnavailable = errors.New("keys: secure enclave unavailable")

	// ErrSecureEnclaveFailure wraps errors returned by an Enclave.
	ErrSecureEnclaveFailure = errors.New("keys: secure enclave failure")

	// ErrNotSecureEnclaveType is returned when an Enclave is asked for a
	// software key type.
	ErrNotSecureEnclaveType = errors.New("keys: not a secure enclave key type")
)

// KeyTypeMismatchError reports the two incompatible key types.
type KeyTypeMismatchError struct {
	A, B KeyType
}

func (e *KeyTypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s, %s", ErrKeyTypeMismatch, e.A, e.B)
}

func (e *KeyTypeMismatchError) Unwrap() error { return ErrKeyTypeMismatch }

// UnsupportedOperationError reports a key type that lacks a capability. Err is
// ErrKeyTypeDoesNotSupportKeyAgreement or ErrKeyTypeDoesNotSupportSigning.
type UnsupportedOperationError struct {
	Type KeyType
	Err  error
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Type)
}

func (e *UnsupportedOperationError) Unwrap() error { return e.Err }

func mismatch(a, b KeyType) error {
	return &KeyTypeMismatchError{A: a, B: b}
}

func noKeyAgreement(t KeyType) error {
	return &UnsupportedOperationError{Type: t, Err: ErrKeyTypeDoesNotSupportKeyAgreement}
}

func noSigning(t KeyType) error {
	return &UnsupportedOperationError{Type: t, Err: ErrKeyTypeDoesNotSupportSigning}
}

func badKeyData(t KeyType, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrBadKeyData, t, fmt.Sprintf(format, args...))
}
