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
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnclaveKey struct {
	handle []byte
	key    *ecdsa.PrivateKey
}

func (k *fakeEnclaveKey) Public() crypto.PublicKey { return &k.key.PublicKey }

func (k *fakeEnclaveKey) Sign(rand io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	return ecdsa.SignASN1(rand, k.key, digest)
}

func (k *fakeEnclaveKey) Handle() []byte { return k.handle }

func (k *fakeEnclaveKey) ECDH(peer *ecdh.PublicKey) ([]byte, error) {
	priv, err := k.key.ECDH()
	if err != nil {
		return nil, err
	}
	return priv.ECDH(peer)
}

type fakeEnclave struct {
	keys map[string]*fakeEnclaveKey
	err  error
}

func newFakeEnclave() *fakeEnclave {
	return &fakeEnclave{keys: make(map[string]*fakeEnclaveKey)}
}

func (e *fakeEnclave) GenerateKey(_ context.Context, _ KeyType) (EnclaveKey, error) {
	if e.err != nil {
		return nil, e.err
	}
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	handle := []byte(fmt.Sprintf("handle-%d", len(e.keys)))
	ek := &fakeEnclaveKey{handle: handle, key: k}
	e.keys[string(handle)] = ek
	return ek, nil
}

func (e *fakeEnclave) LoadKey(_ context.Context, _ KeyType, handle []byte) (EnclaveKey, error) {
	k, ok := e.keys[string(handle)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return k, nil
}

func (e *fakeEnclave) DeleteKey(_ context.Context, handle []byte) error {
	delete(e.keys, string(handle))
	return nil
}

func (e *fakeEnclave) Close() error { return nil }

func TestGenerateInEnclave(t *testing.T) {
	ctx := context.Background()
	enclave := newFakeEnclave()

	t.Run("signing", func(t *testing.T) {
		priv, err := GenerateInEnclave(ctx, enclave, P256SecureEnclaveSigning)
		require.NoError(t, err)
		assert.True(t, priv.IsEnclave())
		assert.Equal(t, P256SecureEnclaveSigning, priv.Type())
		assert.Equal(t, P256Signing, priv.PublicKey().Type())

		msg := []byte("hardware signed")
		sig, err := priv.Sign(msg)
		require.NoError(t, err)
		assert.True(t, priv.PublicKey().Verify(sig, msg))

		_, err = priv.SharedSecret(priv.PublicKey())
		assert.ErrorIs(t, err, ErrKeyTypeDoesNotSupportKeyAgreement)
	})

	t.Run("key agreement", func(t *testing.T) {
		priv, err := GenerateInEnclave(ctx, enclave, P256SecureEnclaveKeyAgreement)
		require.NoError(t, err)
		assert.Equal(t, P256KeyAgreement, priv.PublicKey().Type())

		peer, err := NewKeypair(P256KeyAgreement)
		require.NoError(t, err)

		s1, err := priv.SharedSecret(peer.Public)
		require.NoError(t, err)
		s2, err := peer.Private.SharedSecret(priv.PublicKey())
		require.NoError(t, err)
		assert.True(t, s1.Equal(s2))

		p384, err := NewKeypair(P384KeyAgreement)
		require.NoError(t, err)
		_, err = priv.SharedSecret(p384.Public)
		assert.Equal(t, &KeyTypeMismatchError{A: P256SecureEnclaveKeyAgreement, B: P384KeyAgreement}, err)
	})

	t.Run("no raw representation", func(t *testing.T) {
		priv, err := GenerateInEnclave(ctx, enclave, P256SecureEnclaveSigning)
		require.NoError(t, err)

		_, err = priv.Bytes()
		assert.ErrorIs(t, err, ErrNoRawRepresentation)
		_, err = priv.X963()
		assert.ErrorIs(t, err, ErrNoRawRepresentation)
		_, err = priv.TypedData()
		assert.ErrorIs(t, err, ErrNoRawRepresentation)
		_, err = priv.MarshalText()
		assert.ErrorIs(t, err, ErrNoRawRepresentation)
		assert.False(t, priv.Equal(priv))
	})
}

func TestGenerateInEnclaveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := GenerateInEnclave(ctx, nil, P256SecureEnclaveSigning)
	assert.ErrorIs(t, err, ErrSecureEnclaveUnavailable)

	_, err = GenerateInEnclave(ctx, newFakeEnclave(), P256Signing)
	assert.ErrorIs(t, err, ErrNotSecureEnclaveType)

	refusing := newFakeEnclave()
	refusing.err = errors.New("device locked")
	_, err = GenerateInEnclave(ctx, refusing, P256SecureEnclaveSigning)
	assert.ErrorIs(t, err, ErrSecureEnclaveFailure)
	assert.Contains(t, err.Error(), "device locked")
}

func TestRestoreEnclaveKey(t *testing.T) {
	ctx := context.Background()
	enclave := newFakeEnclave()

	priv, err := GenerateInEnclave(ctx, enclave, P256SecureEnclaveSigning)
	require.NoError(t, err)
	handle, ok := priv.EnclaveHandle()
	require.True(t, ok)

	restored, err := RestoreEnclaveKey(ctx, enclave, P256SecureEnclaveSigning, handle)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey().Equal(restored.PublicKey()))

	_, err = RestoreEnclaveKey(ctx, enclave, P256SecureEnclaveSigning, []byte("missing"))
	assert.ErrorIs(t, err, ErrSecureEnclaveFailure)

	_, err = RestoreEnclaveKey(ctx, nil, P256SecureEnclaveSigning, handle)
	assert.ErrorIs(t, err, ErrSecureEnclaveUnavailable)

	software, err := Generate(P256Signing)
	require.NoError(t, err)
	_, ok = software.EnclaveHandle()
	assert.False(t, ok)
}
