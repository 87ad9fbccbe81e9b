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


package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestNew_EmptyRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newStorage(t)

	require.NoError(t, fs.Put(ctx, "keys/alice.key", []byte("secret"), nil))

	data, err := fs.Get(ctx, "keys/alice.key")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), data)

	info, err := os.Stat(filepath.Join(fs.Root(), "keys", "alice.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	ok, err := fs.Exists(ctx, "keys/alice.key")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fs.Put(ctx, "keys/alice.key", []byte("rotated"), nil))
	data, err = fs.Get(ctx, "keys/alice.key")
	require.NoError(t, err)
	assert.Equal(t, []byte("rotated"), data)

	require.NoError(t, fs.Delete(ctx, "keys/alice.key"))
	_, err = fs.Get(ctx, "keys/alice.key")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, fs.Delete(ctx, "keys/alice.key"), storage.ErrNotFound)
}

func TestFileStorage_Permissions(t *testing.T) {
	ctx := context.Background()
	fs := newStorage(t)

	require.NoError(t, fs.Put(ctx, "public/pub.key", []byte("p"), &storage.Options{Permissions: 0644}))
	info, err := os.Stat(filepath.Join(fs.Root(), "public", "pub.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestFileStorage_List(t *testing.T) {
	ctx := context.Background()
	fs := newStorage(t)

	for _, k := range []string{"keys/b.key", "keys/a.key", "passwords/host.pw"} {
		require.NoError(t, fs.Put(ctx, k, []byte("v"), nil))
	}
	require.NoError(t, os.WriteFile(filepath.Join(fs.Root(), "keys", ".tmp-123"), nil, 0600))

	keys, err := fs.List(ctx, "keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a.key", "keys/b.key"}, keys)

	labels, err := storage.ListKeys(ctx, fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)
}

func TestFileStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	fs := newStorage(t)

	for _, k := range []string{"../outside", "/etc/passwd", "keys/../../x", ""} {
		assert.ErrorIs(t, fs.Put(ctx, k, []byte("v"), nil), storage.ErrInvalidKey, k)
		_, err := fs.Get(ctx, k)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, k)
	}
}

func TestFileStorage_Closed(t *testing.T) {
	ctx := context.Background()
	fs := newStorage(t)
	require.NoError(t, fs.Close())

	_, err := fs.Get(ctx, "keys/a.key")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, fs.Put(ctx, "keys/a.key", nil, nil), storage.ErrClosed)
}
