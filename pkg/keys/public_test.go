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
	"crypto/x509"
	"encoding/json"
	"testing"

	"github.com/jeremyhahn/go-keytypes/pkg/typed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Public keys exported by the Android client, JSON encoded.
const (
	androidPublicKeyJSON = "\"AgR8/StHp2HnkV9oqxk0mR0ZAmHEWpyNTeAMrP3XORBvsjmCSozWougOLljPwxy6Kmybv8aix3MJyr1w8hFec6BU\""
	androidPublicKey     = "AgTIL1ZOd/o2sQLftT4V/ex82zOIWFyyreBp4sEN+/GbUg86ByjcNut/ebBWQj+Ju41N+CtYXNG2RFGXX4KSgIHw"
)

func TestAndroidFixtures(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var pub PublicKey
		require.NoError(t, json.Unmarshal([]byte(androidPublicKeyJSON), &pub))
		assert.Equal(t, P256KeyAgreement, pub.Type())
		assert.Equal(t, byte(2), pub.TypedData()[0])

		out, err := json.Marshal(pub)
		require.NoError(t, err)
		assert.Equal(t, androidPublicKeyJSON, string(out))
	})

	t.Run("quoted string", func(t *testing.T) {
		pub, err := ParsePublicKey(androidPublicKeyJSON)
		require.NoError(t, err)
		assert.Equal(t, P256KeyAgreement, pub.Type())
	})

	t.Run("display string", func(t *testing.T) {
		pub, err := ParsePublicKey(androidPublicKey)
		require.NoError(t, err)
		assert.Equal(t, P256KeyAgreement, pub.Type())
		assert.Equal(t, androidPublicKey, pub.String())
	})

	t.Run("agreement with android key", func(t *testing.T) {
		pub, err := ParsePublicKey(androidPublicKey)
		require.NoError(t, err)
		priv, err := Generate(P256KeyAgreement)
		require.NoError(t, err)
		secret, err := priv.SharedSecret(pub)
		require.NoError(t, err)
		assert.Len(t, secret.Bytes(), 32)
	})
}

func TestPublicKeyRoundTrip(t *testing.T) {
	for _, typ := range softwareTypes {
		t.Run(typ.String(), func(t *testing.T) {
			priv, err := Generate(typ)
			require.NoError(t, err)
			pub := priv.PublicKey()

			decoded, err := PublicKeyFromTypedData(pub.TypedData())
			require.NoError(t, err)
			assert.True(t, pub.Equal(decoded))

			parsed, err := ParsePublicKey(pub.String())
			require.NoError(t, err)
			assert.True(t, pub.Equal(parsed))

			fromRaw, err := NewPublicKey(typ, pub.Bytes())
			require.NoError(t, err)
			assert.True(t, pub.Equal(fromRaw))

			der, err := pub.PKIX()
			require.NoError(t, err)
			_, err = x509.ParsePKIXPublicKey(der)
			require.NoError(t, err)
		})
	}
}

func TestPublicKeyPointForms(t *testing.T) {
	for _, typ := range []KeyType{P256KeyAgreement, P384Signing, P521Signing} {
		t.Run(typ.String(), func(t *testing.T) {
			priv, err := Generate(typ)
			require.NoError(t, err)
			pub := priv.PublicKey()
			n := rawPrivateSize(typ)

			x963, err := pub.X963()
			require.NoError(t, err)
			assert.Len(t, x963, 1+2*n)

			compressed, err := pub.CompressedBytes()
			require.NoError(t, err)
			assert.Len(t, compressed, 1+n)

			fromCompressed, err := NewPublicKey(typ, compressed)
			require.NoError(t, err)
			assert.True(t, pub.Equal(fromCompressed))

			fromX963, err := PublicKeyFromX963(typ, x963)
			require.NoError(t, err)
			assert.True(t, pub.Equal(fromX963))

			// The compact form drops the y coordinate; decoding yields either
			// the key itself or its negation, which share x.
			fromCompact, err := NewPublicKey(typ, x963[1:1+n])
			require.NoError(t, err)
			assert.Equal(t, x963[1:1+n], fromCompact.Bytes()[1:1+n])
		})
	}
}

func TestNewPublicKeyRejects(t *testing.T) {
	_, err := NewPublicKey(P256SecureEnclaveSigning, make([]byte, 65))
	assert.ErrorIs(t, err, ErrCannotStorePublicKeysInSecureEnclave)

	_, err = NewPublicKey(P256SecureEnclaveKeyAgreement, make([]byte, 65))
	assert.ErrorIs(t, err, ErrCannotStorePublicKeysInSecureEnclave)

	_, err = NewPublicKey(Curve25519Signing, make([]byte, 31))
	assert.ErrorIs(t, err, ErrBadKeyData)

	_, err = NewPublicKey(Curve25519KeyAgreement, make([]byte, 33))
	assert.ErrorIs(t, err, ErrBadKeyData)

	// Point not on the curve
	bad := make([]byte, 65)
	bad[0] = 0x04
	bad[64] = 1
	_, err = NewPublicKey(P256KeyAgreement, bad)
	assert.ErrorIs(t, err, ErrBadKeyData)

	_, err = NewPublicKey(P384KeyAgreement, make([]byte, 65))
	assert.ErrorIs(t, err, ErrBadKeyData)

	_, err = PublicKeyFromX963(Curve25519KeyAgreement, make([]byte, 32))
	assert.ErrorIs(t, err, ErrNoX963Representation)
}

func TestPublicKeyFromTypedDataRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"tag only", []byte{2}},
		{"zero tag", append([]byte{0}, make([]byte, 32)...)},
		{"unassigned tag", append([]byte{42}, make([]byte, 32)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PublicKeyFromTypedData(tt.data)
			assert.ErrorIs(t, err, typed.ErrBadTypeData)
		})
	}
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey("not base64!")
	assert.ErrorIs(t, err, typed.ErrBadTypeData)
}
