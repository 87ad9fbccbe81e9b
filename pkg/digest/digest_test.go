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

package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	msg := []byte("hello world")
	s256 := sha256.Sum256(msg)
	s384 := sha512.Sum384(msg)
	s512 := sha512.Sum512(msg)

	tests := []struct {
		typ  DigestType
		want []byte
	}{
		{SHA256, s256[:]},
		{SHA384, s384[:]},
		{SHA512, s512[:]},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			d, err := Compute(tt.typ, msg)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, d.Type())
			assert.Equal(t, tt.want, d.Bytes())
			assert.Len(t, d.Bytes(), tt.typ.Size())
			assert.Equal(t, byte(tt.typ), d.TypedData()[0])
		})
	}

	_, err := Compute(DigestType(4), msg)
	assert.ErrorIs(t, err, typed.ErrBadTypeData)
}

func TestNew(t *testing.T) {
	_, err := New(SHA256, make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)

	_, err = New(SHA384, make([]byte, 64))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)

	d, err := New(SHA512, make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, SHA512, d.Type())
}

func TestRoundTrip(t *testing.T) {
	for _, typ := range Types {
		t.Run(typ.String(), func(t *testing.T) {
			d, err := Compute(typ, []byte("payload"))
			require.NoError(t, err)

			decoded, err := FromTypedData(d.TypedData())
			require.NoError(t, err)
			assert.True(t, d.Equal(decoded))

			parsed, err := ParseString(d.String())
			require.NoError(t, err)
			assert.True(t, d.Equal(parsed))

			j, err := json.Marshal(d)
			require.NoError(t, err)
			var fromJSON Digest
			require.NoError(t, json.Unmarshal(j, &fromJSON))
			assert.True(t, d.Equal(fromJSON))
		})
	}
}

func TestFromTypedDataRejects(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {2}, {0, 1}, {4, 1}} {
		_, err := FromTypedData(data)
		assert.ErrorIs(t, err, typed.ErrBadTypeData)
	}

	// valid tag, wrong payload length
	_, err := FromTypedData(append([]byte{byte(SHA256)}, make([]byte, 48)...))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)
}

func TestZeroDigest(t *testing.T) {
	var d Digest
	assert.Nil(t, d.TypedData())
	assert.False(t, d.Equal(Digest{}))
	_, err := d.MarshalText()
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("SHA384")
	require.NoError(t, err)
	assert.Equal(t, SHA384, typ)

	_, err = ParseType("MD5")
	assert.Error(t, err)
}
