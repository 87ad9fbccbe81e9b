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


package nonce

import (
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandom(t *testing.T) {
	for _, typ := range Types {
		t.Run(typ.String(), func(t *testing.T) {
			a, err := Random(typ)
			require.NoError(t, err)
			b, err := Random(typ)
			require.NoError(t, err)

			assert.Equal(t, typ, a.Type())
			assert.Len(t, a.Bytes(), Size)
			assert.False(t, a.Equal(b), "two random nonces collided")
		})
	}

	_, err := Random(NonceType(1))
	assert.ErrorIs(t, err, typed.ErrBadTypeData)
}

func TestNew(t *testing.T) {
	_, err := New(AESGCM, make([]byte, 11))
	assert.ErrorIs(t, err, ErrInvalidNonceLength)

	_, err = New(ChaChaPoly, make([]byte, 24))
	assert.ErrorIs(t, err, ErrInvalidNonceLength)

	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	n, err := New(ChaChaPoly, raw)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{3}, raw...), n.TypedData())
}

func TestRoundTrip(t *testing.T) {
	for _, typ := range Types {
		n, err := Random(typ)
		require.NoError(t, err)

		decoded, err := FromTypedData(n.TypedData())
		require.NoError(t, err)
		assert.True(t, n.Equal(decoded))

		parsed, err := ParseString(n.String())
		require.NoError(t, err)
		assert.True(t, n.Equal(parsed))

		j, err := json.Marshal(n)
		require.NoError(t, err)
		var out Nonce
		require.NoError(t, json.Unmarshal(j, &out))
		assert.True(t, n.Equal(out))
	}
}

func TestFromTypedDataRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"tag only", []byte{2}},
		{"zero tag", append([]byte{0}, make([]byte, Size)...)},
		{"unassigned tag", append([]byte{4}, make([]byte, Size)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromTypedData(tt.data)
			assert.ErrorIs(t, err, typed.ErrBadTypeData)
		})
	}

	_, err := FromTypedData([]byte{2, 1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidNonceLength)
}
