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


//go:build pkcs11

package pkcs11

import (
	"context"
	"os"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestEnclave opens the SoftHSM token named by PKCS11_LIBRARY,
// PKCS11_TOKEN_LABEL and PKCS11_PIN, skipping when they are not set.
func openTestEnclave(t *testing.T) *Enclave {
	t.Helper()
	lib := os.Getenv("PKCS11_LIBRARY")
	label := os.Getenv("PKCS11_TOKEN_LABEL")
	if lib == "" || label == "" {
		t.Skip("PKCS11_LIBRARY and PKCS11_TOKEN_LABEL not set")
	}
	e, err := Open(&Config{
		Library:    lib,
		TokenLabel: label,
		PIN:        os.Getenv("PKCS11_PIN"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestPKCS11Signing(t *testing.T) {
	ctx := context.Background()
	e := openTestEnclave(t)

	priv, err := keys.GenerateInEnclave(ctx, e, keys.P256SecureEnclaveSigning)
	require.NoError(t, err)
	handle, _ := priv.EnclaveHandle()
	defer func() { _ = e.DeleteKey(ctx, handle) }()

	msg := []byte("signed on the token")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey().Verify(sig, msg))

	restored, err := keys.RestoreEnclaveKey(ctx, e, keys.P256SecureEnclaveSigning, handle)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey().Equal(restored.PublicKey()))
}

func TestPKCS11KeyAgreement(t *testing.T) {
	ctx := context.Background()
	e := openTestEnclave(t)

	priv, err := keys.GenerateInEnclave(ctx, e, keys.P256SecureEnclaveKeyAgreement)
	require.NoError(t, err)
	handle, _ := priv.EnclaveHandle()
	defer func() { _ = e.DeleteKey(ctx, handle) }()

	peer, err := keys.NewKeypair(keys.P256KeyAgreement)
	require.NoError(t, err)

	a, err := priv.SharedSecret(peer.Public)
	require.NoError(t, err)
	b, err := peer.Private.SharedSecret(priv.PublicKey())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestPKCS11DeleteKey(t *testing.T) {
	ctx := context.Background()
	e := openTestEnclave(t)

	priv, err := keys.GenerateInEnclave(ctx, e, keys.P256SecureEnclaveSigning)
	require.NoError(t, err)
	handle, _ := priv.EnclaveHandle()

	require.NoError(t, e.DeleteKey(ctx, handle))
	_, err = e.LoadKey(ctx, keys.P256SecureEnclaveSigning, handle)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
