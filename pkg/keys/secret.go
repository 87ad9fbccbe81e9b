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
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
	"golang.org/x/crypto/hkdf"
)

// SharedSecret is the raw output of key agreement.
type SharedSecret struct {
	data []byte
}

// Bytes returns a copy of the secret.
func (s SharedSecret) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Equal compares two secrets in constant time.
func (s SharedSecret) Equal(other SharedSecret) bool {
	if s.data == nil || other.data == nil {
		return false
	}
	return subtle.ConstantTimeCompare(s.data, other.data) == 1
}

func (s SharedSecret) String() string {
	return fmt.Sprintf("<shared secret: %d bytes>", len(s.data))
}

// SymmetricKey reinterprets the raw secret as a symmetric key.
func (s SharedSecret) SymmetricKey() symmetric.Key {
	// Agreement output is never empty, so FromBytes cannot fail here.
	k, _ := symmetric.FromBytes(s.data)
	return k
}

// HKDFSymmetricKey derives a symmetric key of outLen bytes from the secret
// with HKDF over the given hash.
func (s SharedSecret) HKDFSymmetricKey(t digest.DigestType, salt, info []byte, outLen int) (symmetric.Key, error) {
	if !t.Valid() {
		return symmetric.Key{}, fmt.Errorf("keys: unsupported HKDF digest %s", t)
	}
	if outLen <= 0 {
		return symmetric.Key{}, fmt.Errorf("keys: HKDF output length must be positive, got %d", outLen)
	}
	if len(s.data) == 0 {
		return symmetric.Key{}, fmt.Errorf("keys: empty shared secret")
	}
	out := make([]byte, outLen)
	if _, err := io.ReadFull(hkdf.New(t.New, s.data, salt, info), out); err != nil {
		return symmetric.Key{}, fmt.Errorf("keys: HKDF derivation failed: %w", err)
	}
	return symmetric.FromBytes(out)
}
