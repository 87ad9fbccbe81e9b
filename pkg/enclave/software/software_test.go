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


package software

import (
	"context"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnclaveSigning(t *testing.T) {
	ctx := context.Background()
	enclave := New()
	defer enclave.Close()

	priv, err := keys.GenerateInEnclave(ctx, enclave, keys.P256SecureEnclaveSigning)
	require.NoError(t, err)
	assert.Equal(t, 1, enclave.Len())

	msg := []byte("signed in the enclave")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey().Verify(sig, msg))

	_, err = priv.Bytes()
	assert.ErrorIs(t, err, keys.ErrNoRawRepresentation)
}

func TestEnclaveKeyAgreement(t *testing.T) {
	ctx := context.Background()
	enclave := New()
	defer enclave.Close()

	priv, err := keys.GenerateInEnclave(ctx, enclave, keys.P256SecureEnclaveKeyAgreement)
	require.NoError(t, err)
	peer, err := keys.NewKeypair(keys.P256KeyAgreement)
	require.NoError(t, err)

	a, err := priv.SharedSecret(peer.Public)
	require.NoError(t, err)
	b, err := peer.Private.SharedSecret(priv.PublicKey())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestEnclaveReloadAndDelete(t *testing.T) {
	ctx := context.Background()
	enclave := New()

	priv, err := keys.GenerateInEnclave(ctx, enclave, keys.P256SecureEnclaveSigning)
	require.NoError(t, err)
	handle, ok := priv.EnclaveHandle()
	require.True(t, ok)

	restored, err := keys.RestoreEnclaveKey(ctx, enclave, keys.P256SecureEnclaveSigning, handle)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey().Equal(restored.PublicKey()))

	require.NoError(t, enclave.DeleteKey(ctx, handle))
	assert.Equal(t, 0, enclave.Len())
	assert.ErrorIs(t, enclave.DeleteKey(ctx, handle), ErrKeyNotFound)

	_, err = enclave.LoadKey(ctx, keys.P256SecureEnclaveSigning, handle)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = enclave.LoadKey(ctx, keys.P256SecureEnclaveSigning, []byte("not-a-uuid"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEnclaveRejectsSoftwareTypes(t *testing.T) {
	_, err := New().GenerateKey(context.Background(), keys.P256Signing)
	assert.ErrorIs(t, err, keys.ErrNotSecureEnclaveType)
}

func TestEnclaveClosed(t *testing.T) {
	ctx := context.Background()
	enclave := New()
	require.NoError(t, enclave.Close())

	_, err := enclave.GenerateKey(ctx, keys.P256SecureEnclaveSigning)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnclaveContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().GenerateKey(ctx, keys.P256SecureEnclaveSigning)
	assert.ErrorIs(t, err, context.Canceled)
}
