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


package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "keys/signing.key", KeyPath("signing"))
	assert.Equal(t, "passwords/example.com.pw", PasswordPath("example.com"))
}

func TestListNamespaces(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()

	require.NoError(t, backend.Put(ctx, KeyPath("alice"), []byte("a"), nil))
	require.NoError(t, backend.Put(ctx, KeyPath("bob"), []byte("b"), nil))
	require.NoError(t, backend.Put(ctx, "keys/stray.tmp", []byte("c"), nil))
	require.NoError(t, backend.Put(ctx, PasswordPath("example.com"), []byte("p"), nil))

	labels, err := ListKeys(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, labels)

	servers, err := ListPasswords(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, servers)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"keys/a.key", "a", "passwords/host.example.pw"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/etc/passwd", "../x", "keys/../../x", "keys//a", "keys/./a", "a\x00b"}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}
