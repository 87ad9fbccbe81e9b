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


package keychain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/keys"
	"github.com/jeremyhahn/go-keytypes/pkg/logging"
	"github.com/jeremyhahn/go-keytypes/pkg/sealedbox"
	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/jeremyhahn/go-keytypes/pkg/symmetric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedService(t *testing.T, backend storage.Backend, key symmetric.Key) *Service {
	t.Helper()
	svc, err := New(&Config{
		Backend:    backend,
		SealingKey: &key,
		SealType:   sealedbox.ChaChaPoly,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)
	return svc
}

func TestRecordFormat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	priv, err := f.svc.GenerateAndStore(ctx, "plain", keys.P256Signing, false)
	require.NoError(t, err)

	raw, err := f.backend.Get(ctx, "keys/plain.key")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "P256Signing", rec["type"])

	text, err := priv.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, string(text), rec["key"])
	assert.NotEmpty(t, rec["created"])
}

func TestSealedRecords(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	key, err := symmetric.New(256)
	require.NoError(t, err)
	svc := sealedService(t, backend, key)

	priv, err := svc.GenerateAndStore(ctx, "a", keys.P256KeyAgreement, false)
	require.NoError(t, err)
	require.NoError(t, svc.StorePassword(ctx, "example.com", "alice", []byte("hunter2"), false))

	raw, err := backend.Get(ctx, "keys/a.key")
	require.NoError(t, err)
	assert.Equal(t, byte(sealedbox.ChaChaPoly), raw[0])
	assert.False(t, json.Valid(raw))

	got, err := svc.Retrieve(ctx, "a", keys.P256KeyAgreement)
	require.NoError(t, err)
	assert.True(t, priv.Equal(got))

	cred, err := svc.RetrievePassword(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), cred.Password)

	t.Run("wrong key", func(t *testing.T) {
		other, err := symmetric.New(256)
		require.NoError(t, err)
		_, err = sealedService(t, backend, other).Retrieve(ctx, "a", keys.P256KeyAgreement)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})

	t.Run("record moved to another label", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "keys/b.key", raw, nil))
		_, err := svc.Retrieve(ctx, "b", keys.P256KeyAgreement)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})

	t.Run("unsealed record", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "keys/c.key", []byte(`{"type":"P256KeyAgreement"}`), nil))
		_, err := svc.Retrieve(ctx, "c", keys.P256KeyAgreement)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})
}

func TestSealingKeyValidation(t *testing.T) {
	short, err := symmetric.New(128)
	require.NoError(t, err)

	_, err = New(&Config{
		Backend:    storage.NewMemory(),
		SealingKey: &short,
		SealType:   sealedbox.ChaChaPoly,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{
		Backend:    storage.NewMemory(),
		SealingKey: &short,
		SealType:   sealedbox.AESGCM,
		Logger:     logging.Discard(),
	})
	assert.NoError(t, err)

	_, err = New(&Config{Backend: storage.NewMemory(), SealType: 9})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
