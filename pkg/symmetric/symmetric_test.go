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


package symmetric

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, bits := range []int{128, 192, 256} {
		k, err := New(bits)
		require.NoError(t, err)
		assert.Equal(t, bits, k.Bits())
		assert.Equal(t, bits/8, k.Size())
	}

	_, err := New(512)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(nil)
	assert.ErrorIs(t, err, ErrEmptyKey)

	raw := []byte{1, 2, 3, 4}
	k, err := FromBytes(raw)
	require.NoError(t, err)
	raw[0] = 9
	assert.Equal(t, []byte{1, 2, 3, 4}, k.Bytes())
}

func TestStringRedacts(t *testing.T) {
	k, err := FromBytes([]byte("super secret key material 123456"))
	require.NoError(t, err)
	assert.Equal(t, "<symmetric key: 256 bits>", k.String())
}

func TestJSON(t *testing.T) {
	k, err := New(256)
	require.NoError(t, err)

	j, err := json.Marshal(k)
	require.NoError(t, err)

	var out Key
	require.NoError(t, json.Unmarshal(j, &out))
	assert.True(t, k.Equal(out))
}

func TestHMAC(t *testing.T) {
	k, err := FromBytes([]byte("key"))
	require.NoError(t, err)
	data := []byte("The quick brown fox jumps over the lazy dog")

	code, err := HMAC(digest.SHA384, k, data)
	require.NoError(t, err)

	ref := hmac.New(sha512.New384, []byte("key"))
	ref.Write(data)
	assert.Equal(t, ref.Sum(nil), code.MAC)

	assert.True(t, VerifyHMAC(code, k, data))
	assert.False(t, VerifyHMAC(code, k, []byte("tampered")))

	other, err := FromBytes([]byte("other key"))
	require.NoError(t, err)
	assert.False(t, VerifyHMAC(code, other, data))

	_, err = HMAC(digest.DigestType(9), k, data)
	assert.Error(t, err)

	_, err = HMAC(digest.SHA256, Key{}, data)
	assert.ErrorIs(t, err, ErrEmptyKey)
}
